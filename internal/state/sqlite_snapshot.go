package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// LoadTree reads a full snapshot of a tree. All child collections come
// back ordered by position, which is the creation order the evaluator
// depends on.
func (s *SQLiteStore) LoadTree(id string) (*tree.Tree, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec, err := s.GetTree(id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.loadNodes(id)
	if err != nil {
		return nil, err
	}
	rels, err := s.loadRelationships(id)
	if err != nil {
		return nil, err
	}
	policies, err := s.loadPolicies(id)
	if err != nil {
		return nil, err
	}

	return tree.Rehydrate(rec.ID, rec.ProjectID, rec.Name, nodes, rels, policies), nil
}

func (s *SQLiteStore) loadNodes(treeID string) ([]*tree.Node, error) {
	rows, err := s.db.Query(
		`SELECT id, label, kind, pos_x, pos_y, raw_value,
		        binding_source_id, binding_column_id, binding_aggregation
		 FROM nodes WHERE tree_id = ? ORDER BY position`, treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var out []*tree.Node
	for rows.Next() {
		n := &tree.Node{}
		var kind string
		var rawValue sql.NullFloat64
		var sourceID, columnID, aggregation sql.NullString
		err := rows.Scan(&n.ID, &n.Label, &kind, &n.Position.X, &n.Position.Y,
			&rawValue, &sourceID, &columnID, &aggregation)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Kind = tree.NodeKind(kind)
		if rawValue.Valid {
			v := rawValue.Float64
			n.RawValue = &v
		}
		if sourceID.Valid {
			n.Binding = &tree.DataBinding{
				SourceID:    sourceID.String,
				ColumnID:    columnID.String,
				Aggregation: tree.Aggregation(aggregation.String),
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadRelationships(treeID string) ([]*tree.Relationship, error) {
	rows, err := s.db.Query(
		`SELECT id, parent_node_id, child_node_id, operator
		 FROM relationships WHERE tree_id = ? ORDER BY position`, treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	defer rows.Close()

	var out []*tree.Relationship
	for rows.Next() {
		r := &tree.Relationship{}
		var op string
		if err := rows.Scan(&r.ID, &r.ParentID, &r.ChildID, &op); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		r.Operator = tree.Operator(op)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadPolicies(treeID string) ([]*tree.Policy, error) {
	rows, err := s.db.Query(
		`SELECT id, target_node_id, kind, value, cost, duration_months, status
		 FROM policies WHERE tree_id = ? ORDER BY position`, treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	defer rows.Close()

	var out []*tree.Policy
	for rows.Next() {
		p := &tree.Policy{}
		var kind, status string
		err := rows.Scan(&p.ID, &p.TargetNodeID, &kind, &p.Value, &p.Cost,
			&p.DurationMonths, &status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		p.Kind = tree.PolicyKind(kind)
		p.Status = tree.PolicyStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveTree writes a whole in-memory tree in one transaction. Template
// import depends on this being atomic: a failed insert rolls back the
// tree row and everything under it.
func (s *SQLiteStore) SaveTree(t *tree.Tree, isTemplate bool) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO trees (id, project_id, name, is_template, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Name, isTemplate, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tree: %w", err)
	}

	for i, n := range t.Nodes() {
		if err := insertNode(tx, t.ID, n, i); err != nil {
			return err
		}
	}
	for i, r := range t.Relationships() {
		_, err := tx.Exec(
			`INSERT INTO relationships (id, tree_id, parent_node_id, child_node_id, operator, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, t.ID, r.ParentID, r.ChildID, string(r.Operator), i, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert relationship: %w", err)
		}
	}
	for i, p := range t.Policies() {
		_, err := tx.Exec(
			`INSERT INTO policies (id, tree_id, target_node_id, kind, value, cost, duration_months, status, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, t.ID, p.TargetNodeID, string(p.Kind), p.Value, p.Cost, p.DurationMonths, string(p.Status), i, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert policy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tree: %w", err)
	}
	s.logger.Debug("saved tree", "tree_id", t.ID, "nodes", t.NodeCount(), "template", isTemplate)
	return nil
}
