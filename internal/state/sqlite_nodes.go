package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// CreateNode persists a node at the tree's next creation-order position.
func (s *SQLiteStore) CreateNode(treeID string, n *tree.Node) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if n.ID == "" {
		n.ID = generateID()
	}
	if n.Kind == "" {
		n.Kind = tree.KindMetric
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pos, err := nextPosition(tx, "nodes", treeID)
	if err != nil {
		return fmt.Errorf("failed to allocate node position: %w", err)
	}
	if err := insertNode(tx, treeID, n, pos); err != nil {
		return err
	}
	if err := touchTree(tx, treeID); err != nil {
		return fmt.Errorf("failed to touch tree: %w", err)
	}
	return tx.Commit()
}

func insertNode(tx *sql.Tx, treeID string, n *tree.Node, position int) error {
	var sourceID, columnID, aggregation sql.NullString
	if n.Binding != nil {
		sourceID = sql.NullString{String: n.Binding.SourceID, Valid: true}
		columnID = sql.NullString{String: n.Binding.ColumnID, Valid: true}
		aggregation = sql.NullString{String: string(n.Binding.Aggregation), Valid: true}
	}
	var rawValue sql.NullFloat64
	if n.RawValue != nil {
		rawValue = sql.NullFloat64{Float64: *n.RawValue, Valid: true}
	}

	_, err := tx.Exec(
		`INSERT INTO nodes (id, tree_id, label, kind, pos_x, pos_y, raw_value,
		   binding_source_id, binding_column_id, binding_aggregation, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, treeID, n.Label, string(n.Kind), n.Position.X, n.Position.Y, rawValue,
		sourceID, columnID, aggregation, position, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

// UpdateNodeValue sets or clears a node's raw literal value.
func (s *SQLiteStore) UpdateNodeValue(nodeID string, rawValue *float64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var val sql.NullFloat64
	if rawValue != nil {
		val = sql.NullFloat64{Float64: *rawValue, Valid: true}
	}
	result, err := s.db.Exec(`UPDATE nodes SET raw_value = ? WHERE id = ?`, val, nodeID)
	if err != nil {
		return fmt.Errorf("failed to update node value: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	return nil
}

// SetNodeBinding sets or clears (nil) a node's data binding. Bindings are
// only ever changed through this explicit call, never invalidated
// implicitly.
func (s *SQLiteStore) SetNodeBinding(nodeID string, b *tree.DataBinding) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var sourceID, columnID, aggregation sql.NullString
	if b != nil {
		if !b.Aggregation.Valid() {
			return fmt.Errorf("%w: aggregation %q", tree.ErrInvalidEnum, b.Aggregation)
		}
		sourceID = sql.NullString{String: b.SourceID, Valid: true}
		columnID = sql.NullString{String: b.ColumnID, Valid: true}
		aggregation = sql.NullString{String: string(b.Aggregation), Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE nodes SET binding_source_id = ?, binding_column_id = ?, binding_aggregation = ? WHERE id = ?`,
		sourceID, columnID, aggregation, nodeID,
	)
	if err != nil {
		return fmt.Errorf("failed to set node binding: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	return nil
}

// DeleteNode deletes a node; foreign keys cascade to its relationships
// (as parent and child) and its policies.
func (s *SQLiteStore) DeleteNode(nodeID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("node not found: %s", nodeID)
	}
	return nil
}
