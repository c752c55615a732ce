package tree

import (
	"fmt"

	"github.com/google/uuid"
)

// Tree owns a set of nodes, relationships and policies. It belongs to
// exactly one project (an external reference, not owned here).
//
// All ordered accessors return entities in creation order. That order is
// what makes evaluation deterministic, so it is preserved through
// persistence round trips as well.
type Tree struct {
	ID        string
	ProjectID string
	Name      string

	nodes     map[string]*Node
	nodeOrder []string

	rels     map[string]*Relationship
	relOrder []string

	parentRel  map[string]string   // child node id -> relationship id
	childOrder map[string][]string // parent node id -> child node ids, creation order
	operators  map[string]Operator // parent node id -> combination operator

	policies    map[string]*Policy
	policyOrder []string
}

// New creates an empty tree. An empty id is replaced with a fresh UUID.
func New(id, projectID, name string) *Tree {
	if id == "" {
		id = uuid.New().String()
	}
	return &Tree{
		ID:         id,
		ProjectID:  projectID,
		Name:       name,
		nodes:      make(map[string]*Node),
		rels:       make(map[string]*Relationship),
		parentRel:  make(map[string]string),
		childOrder: make(map[string][]string),
		operators:  make(map[string]Operator),
		policies:   make(map[string]*Policy),
	}
}

// Rehydrate rebuilds a tree from persisted rows without re-running the
// insertion-time validations. Storage is trusted here; the evaluator
// still defends against a corrupted (cyclic) relationship set at runtime.
// Slices must already be in creation order.
func Rehydrate(id, projectID, name string, nodes []*Node, rels []*Relationship, policies []*Policy) *Tree {
	t := New(id, projectID, name)
	for _, n := range nodes {
		t.nodes[n.ID] = n
		t.nodeOrder = append(t.nodeOrder, n.ID)
	}
	for _, r := range rels {
		t.rels[r.ID] = r
		t.relOrder = append(t.relOrder, r.ID)
		t.parentRel[r.ChildID] = r.ID
		t.childOrder[r.ParentID] = append(t.childOrder[r.ParentID], r.ChildID)
		t.operators[r.ParentID] = r.Operator
	}
	for _, p := range policies {
		t.policies[p.ID] = p
		t.policyOrder = append(t.policyOrder, p.ID)
	}
	return t
}

// --- Nodes ---

// AddNode adds a node to the tree. An empty id is replaced with a fresh
// UUID; an empty kind defaults to metric.
func (t *Tree) AddNode(n *Node) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Kind == "" {
		n.Kind = KindMetric
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: node kind %q", ErrInvalidEnum, n.Kind)
	}
	if n.Binding != nil && !n.Binding.Aggregation.Valid() {
		return fmt.Errorf("%w: aggregation %q", ErrInvalidEnum, n.Binding.Aggregation)
	}
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	t.nodes[n.ID] = n
	t.nodeOrder = append(t.nodeOrder, n.ID)
	return nil
}

// Node returns a node by id.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Nodes returns all nodes in creation order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.nodeOrder))
	for _, id := range t.nodeOrder {
		out = append(out, t.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// RemoveNode deletes a node and cascades: every relationship in which the
// node participates (as parent or child) and every policy targeting it
// are removed as well.
func (t *Tree) RemoveNode(id string) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	for _, relID := range t.relationshipIDsTouching(id) {
		_ = t.RemoveRelationship(relID)
	}

	var keepPolicies []string
	for _, pid := range t.policyOrder {
		if t.policies[pid].TargetNodeID == id {
			delete(t.policies, pid)
			continue
		}
		keepPolicies = append(keepPolicies, pid)
	}
	t.policyOrder = keepPolicies

	delete(t.nodes, id)
	delete(t.operators, id)
	t.nodeOrder = removeString(t.nodeOrder, id)
	return nil
}

func (t *Tree) relationshipIDsTouching(nodeID string) []string {
	var ids []string
	for _, relID := range t.relOrder {
		r := t.rels[relID]
		if r.ParentID == nodeID || r.ChildID == nodeID {
			ids = append(ids, relID)
		}
	}
	return ids
}

// --- Relationships ---

// AddRelationship registers a parent-child edge after validating the
// structural invariants:
//
//   - both nodes exist in this tree,
//   - the child has no parent yet (single-parent shape),
//   - the parent's operator matches op, unless this is its first child,
//   - the edge does not close a cycle.
//
// The cycle check walks upward from parent following existing parent
// links, O(depth); driver hierarchies are shallow so this is cheap.
// On any error the graph is left unchanged.
func (t *Tree) AddRelationship(parentID, childID string, op Operator) (*Relationship, error) {
	if _, ok := t.nodes[parentID]; !ok {
		return nil, fmt.Errorf("%w: parent %s", ErrNodeNotFound, parentID)
	}
	if _, ok := t.nodes[childID]; !ok {
		return nil, fmt.Errorf("%w: child %s", ErrNodeNotFound, childID)
	}
	if !op.Valid() {
		return nil, fmt.Errorf("%w: operator %q", ErrInvalidEnum, op)
	}
	if _, ok := t.parentRel[childID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrMultipleParents, childID)
	}
	if existing, ok := t.operators[parentID]; ok && len(t.childOrder[parentID]) > 0 && existing != op {
		return nil, fmt.Errorf("%w: %s combines with %q, requested %q",
			ErrOperatorConflict, parentID, existing, op)
	}

	// Walk upward from parent; hitting the child means the new edge would
	// close a loop. Also covers parent == child.
	for cur := parentID; ; {
		if cur == childID {
			return nil, fmt.Errorf("%w: %s is an ancestor of %s", ErrCycleDetected, childID, parentID)
		}
		pid, ok := t.Parent(cur)
		if !ok {
			break
		}
		cur = pid
	}

	r := &Relationship{
		ID:       uuid.New().String(),
		ParentID: parentID,
		ChildID:  childID,
		Operator: op,
	}
	t.rels[r.ID] = r
	t.relOrder = append(t.relOrder, r.ID)
	t.parentRel[childID] = r.ID
	t.childOrder[parentID] = append(t.childOrder[parentID], childID)
	t.operators[parentID] = op
	return r, nil
}

// Relationship returns a relationship by id.
func (t *Tree) Relationship(id string) (*Relationship, bool) {
	r, ok := t.rels[id]
	return r, ok
}

// Relationships returns all relationships in creation order.
func (t *Tree) Relationships() []*Relationship {
	out := make([]*Relationship, 0, len(t.relOrder))
	for _, id := range t.relOrder {
		out = append(out, t.rels[id])
	}
	return out
}

// RemoveRelationship deletes an edge, returning the child to an
// unconnected state. The child keeps any raw value or binding it had, so
// it can be re-wired later. Removing edges can never introduce a cycle,
// so no re-validation is needed.
func (t *Tree) RemoveRelationship(id string) error {
	r, ok := t.rels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	delete(t.rels, id)
	t.relOrder = removeString(t.relOrder, id)
	delete(t.parentRel, r.ChildID)
	t.childOrder[r.ParentID] = removeString(t.childOrder[r.ParentID], r.ChildID)
	if len(t.childOrder[r.ParentID]) == 0 {
		delete(t.childOrder, r.ParentID)
		delete(t.operators, r.ParentID)
	}
	return nil
}

// ChangeOperator sets the combination operator for a parent, updating all
// of its edges. This is the one sanctioned way to alter an operator once
// set; it needs no graph walk.
func (t *Tree) ChangeOperator(parentID string, op Operator) error {
	if _, ok := t.nodes[parentID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, parentID)
	}
	if !op.Valid() {
		return fmt.Errorf("%w: operator %q", ErrInvalidEnum, op)
	}
	t.operators[parentID] = op
	for _, relID := range t.relOrder {
		if r := t.rels[relID]; r.ParentID == parentID {
			r.Operator = op
		}
	}
	return nil
}

// Parent returns the parent node id of a child, if any.
func (t *Tree) Parent(childID string) (string, bool) {
	relID, ok := t.parentRel[childID]
	if !ok {
		return "", false
	}
	return t.rels[relID].ParentID, true
}

// Children returns the child node ids of a parent in creation order.
func (t *Tree) Children(parentID string) []string {
	return t.childOrder[parentID]
}

// Operator returns the combination operator of a parent, if it has
// children.
func (t *Tree) Operator(parentID string) (Operator, bool) {
	op, ok := t.operators[parentID]
	return op, ok
}

// Roots returns the ids of nodes without a parent, in creation order.
// Disconnected nodes appear here too; they contribute nothing to any
// other node's value.
func (t *Tree) Roots() []string {
	var roots []string
	for _, id := range t.nodeOrder {
		if _, ok := t.parentRel[id]; !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// Root returns the id of the tree's root node: the first parentless node
// of kind root, else the first parentless node that has children, else
// the first node.
func (t *Tree) Root() (string, bool) {
	roots := t.Roots()
	for _, id := range roots {
		if t.nodes[id].Kind == KindRoot {
			return id, true
		}
	}
	for _, id := range roots {
		if len(t.childOrder[id]) > 0 {
			return id, true
		}
	}
	if len(t.nodeOrder) > 0 {
		return t.nodeOrder[0], true
	}
	return "", false
}

// --- Policies ---

// AddPolicy attaches a policy to the tree. The target node must exist.
// An empty id is replaced with a fresh UUID; an empty status defaults to
// planned.
func (t *Tree) AddPolicy(p *Policy) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := p.validate(); err != nil {
		return err
	}
	if _, ok := t.nodes[p.TargetNodeID]; !ok {
		return fmt.Errorf("%w: policy target %s", ErrNodeNotFound, p.TargetNodeID)
	}
	if _, exists := t.policies[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePolicy, p.ID)
	}
	t.policies[p.ID] = p
	t.policyOrder = append(t.policyOrder, p.ID)
	return nil
}

// Policy returns a policy by id.
func (t *Tree) Policy(id string) (*Policy, bool) {
	p, ok := t.policies[id]
	return p, ok
}

// Policies returns all policies in creation order.
func (t *Tree) Policies() []*Policy {
	out := make([]*Policy, 0, len(t.policyOrder))
	for _, id := range t.policyOrder {
		out = append(out, t.policies[id])
	}
	return out
}

// PoliciesFor returns the policies targeting a node, in creation order.
// Creation order is the order multiple policies apply in, so it is
// user-visible.
func (t *Tree) PoliciesFor(nodeID string) []*Policy {
	var out []*Policy
	for _, id := range t.policyOrder {
		if p := t.policies[id]; p.TargetNodeID == nodeID {
			out = append(out, p)
		}
	}
	return out
}

// RemovePolicy deletes a policy.
func (t *Tree) RemovePolicy(id string) error {
	if _, ok := t.policies[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
	}
	delete(t.policies, id)
	t.policyOrder = removeString(t.policyOrder, id)
	return nil
}

// removeString removes the first occurrence of s from slice.
func removeString(slice []string, s string) []string {
	for i, v := range slice {
		if v == s {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
