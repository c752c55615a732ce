// Package state persists driver trees using SQLite. It is the
// persistence collaborator of the engine: the evaluator only ever sees
// the immutable snapshots LoadTree hands out and never writes back.
//
// Mutation/evaluation exclusion on a given tree is this layer's caller's
// responsibility (single-writer, multi-reader); the snapshot-per-load
// model means an in-flight evaluation can never observe a concurrent
// structural mutation.
package state

import (
	"time"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// TreeRecord is the stored metadata of a tree.
type TreeRecord struct {
	ID         string
	ProjectID  string
	Name       string
	IsTemplate bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the persistence contract for driver trees.
type Store interface {
	// CreateTree registers a new empty tree.
	CreateTree(projectID, name string, isTemplate bool) (*TreeRecord, error)

	// GetTree retrieves tree metadata by id.
	GetTree(id string) (*TreeRecord, error)

	// ListTrees retrieves all tree records ordered by creation time.
	ListTrees() ([]*TreeRecord, error)

	// DeleteTree deletes a tree and cascades to all owned entities.
	DeleteTree(id string) error

	// LoadTree returns a full snapshot of a tree's nodes, relationships
	// and policies in creation order.
	LoadTree(id string) (*tree.Tree, error)

	// SaveTree persists a whole in-memory tree in one transaction.
	// Used by template import; either everything lands or nothing does.
	SaveTree(t *tree.Tree, isTemplate bool) error

	// CreateNode persists a node.
	CreateNode(treeID string, n *tree.Node) error

	// UpdateNodeValue sets or clears a node's raw literal value.
	UpdateNodeValue(nodeID string, rawValue *float64) error

	// SetNodeBinding sets or clears (nil) a node's data binding.
	SetNodeBinding(nodeID string, b *tree.DataBinding) error

	// DeleteNode deletes a node, cascading to its relationships and
	// policies.
	DeleteNode(nodeID string) error

	// CreateRelationship persists an already-validated relationship.
	// Callers validate through tree.AddRelationship first; the storage
	// schema still backstops the single-parent invariant.
	CreateRelationship(treeID string, r *tree.Relationship) error

	// DeleteRelationship deletes a relationship.
	DeleteRelationship(id string) error

	// UpdateOperator changes the combination operator on all of a
	// parent's edges.
	UpdateOperator(treeID, parentNodeID string, op tree.Operator) error

	// CreatePolicy persists a policy.
	CreatePolicy(treeID string, p *tree.Policy) error

	// UpdatePolicyStatus advances a policy's lifecycle status.
	UpdatePolicyStatus(id string, status tree.PolicyStatus) error

	// DeletePolicy deletes a policy.
	DeletePolicy(id string) error

	// Close releases the underlying connection.
	Close() error
}
