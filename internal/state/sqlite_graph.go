package state

import (
	"fmt"
	"time"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// CreateRelationship persists an already-validated relationship. The
// graph layer has checked cycles, single parent and operator conflicts;
// the UNIQUE child column backstops the single-parent invariant against
// writers that skip validation.
func (s *SQLiteStore) CreateRelationship(treeID string, r *tree.Relationship) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if r.ID == "" {
		r.ID = generateID()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pos, err := nextPosition(tx, "relationships", treeID)
	if err != nil {
		return fmt.Errorf("failed to allocate relationship position: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO relationships (id, tree_id, parent_node_id, child_node_id, operator, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, treeID, r.ParentID, r.ChildID, string(r.Operator), pos, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	if err := touchTree(tx, treeID); err != nil {
		return fmt.Errorf("failed to touch tree: %w", err)
	}
	return tx.Commit()
}

// DeleteRelationship deletes a relationship, returning its child to an
// unconnected state.
func (s *SQLiteStore) DeleteRelationship(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", tree.ErrRelationshipNotFound, id)
	}
	return nil
}

// UpdateOperator changes the combination operator on all edges under a
// parent.
func (s *SQLiteStore) UpdateOperator(treeID, parentNodeID string, op tree.Operator) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if !op.Valid() {
		return fmt.Errorf("%w: operator %q", tree.ErrInvalidEnum, op)
	}

	_, err := s.db.Exec(
		`UPDATE relationships SET operator = ? WHERE tree_id = ? AND parent_node_id = ?`,
		string(op), treeID, parentNodeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update operator: %w", err)
	}
	return nil
}

// CreatePolicy persists a policy.
func (s *SQLiteStore) CreatePolicy(treeID string, p *tree.Policy) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if p.ID == "" {
		p.ID = generateID()
	}
	if p.Status == "" {
		p.Status = tree.PolicyPlanned
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pos, err := nextPosition(tx, "policies", treeID)
	if err != nil {
		return fmt.Errorf("failed to allocate policy position: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO policies (id, tree_id, target_node_id, kind, value, cost, duration_months, status, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, treeID, p.TargetNodeID, string(p.Kind), p.Value, p.Cost, p.DurationMonths, string(p.Status), pos, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	if err := touchTree(tx, treeID); err != nil {
		return fmt.Errorf("failed to touch tree: %w", err)
	}
	return tx.Commit()
}

// UpdatePolicyStatus advances a policy's lifecycle status.
func (s *SQLiteStore) UpdatePolicyStatus(id string, status tree.PolicyStatus) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if !status.Valid() {
		return fmt.Errorf("%w: policy status %q", tree.ErrInvalidEnum, status)
	}

	result, err := s.db.Exec(`UPDATE policies SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", tree.ErrPolicyNotFound, id)
	}
	return nil
}

// DeletePolicy deletes a policy.
func (s *SQLiteStore) DeletePolicy(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", tree.ErrPolicyNotFound, id)
	}
	return nil
}
