package tree

import "errors"

// Structural errors. These are always reported synchronously to the caller
// of the mutating operation and the triggering mutation is aborted whole;
// the graph is never left partially modified.
var (
	// ErrCycleDetected is returned when inserting a relationship would
	// create a path from a node back to one of its ancestors.
	ErrCycleDetected = errors.New("relationship would create a circular reference")

	// ErrMultipleParents is returned when the child of a new relationship
	// already has a parent. Each node has at most one parent.
	ErrMultipleParents = errors.New("node already has a parent")

	// ErrOperatorConflict is returned when a relationship is added under a
	// parent whose operator differs from the requested one. The operator is
	// fixed per parent once set; use ChangeOperator to alter it.
	ErrOperatorConflict = errors.New("parent already combines children with a different operator")

	// ErrNodeNotFound is returned when an operation references a node id
	// that is not part of the tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRelationshipNotFound is returned when an operation references an
	// unknown relationship id.
	ErrRelationshipNotFound = errors.New("relationship not found")

	// ErrPolicyNotFound is returned when an operation references an
	// unknown policy id.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrDuplicateNode is returned when adding a node whose id is already
	// present in the tree.
	ErrDuplicateNode = errors.New("node id already exists")

	// ErrDuplicatePolicy is returned when adding a policy whose id is
	// already present in the tree.
	ErrDuplicatePolicy = errors.New("policy id already exists")

	// ErrInvalidEnum is returned when a kind, operator, aggregation or
	// status value is outside its allowed set.
	ErrInvalidEnum = errors.New("invalid value")
)
