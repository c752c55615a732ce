// Package tree provides the driver-tree data model: business-metric nodes
// connected by parent-child relationships with a combination operator per
// parent. It enforces the structural invariants (acyclicity, single parent)
// at mutation time so that evaluation can be a plain bottom-up walk.
package tree

import "fmt"

// NodeKind classifies a node within a driver tree.
type NodeKind string

const (
	KindRoot   NodeKind = "root"
	KindDriver NodeKind = "driver"
	KindKPI    NodeKind = "kpi"
	KindMetric NodeKind = "metric"
)

// Valid reports whether the kind is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindRoot, KindDriver, KindKPI, KindMetric:
		return true
	}
	return false
}

// Operator combines the values of a parent's children.
// All of a parent's children are combined with the one operator
// associated with that parent, not per edge.
type Operator string

const (
	OpSum     Operator = "sum"
	OpProduct Operator = "product"
	OpAverage Operator = "average"
	OpRatio   Operator = "ratio"
)

// Valid reports whether the operator is one of the known operators.
func (o Operator) Valid() bool {
	switch o {
	case OpSum, OpProduct, OpAverage, OpRatio:
		return true
	}
	return false
}

// Aggregation reduces an external column to a single value at binding time.
type Aggregation string

const (
	AggSum     Aggregation = "sum"
	AggAverage Aggregation = "average"
	AggLatest  Aggregation = "latest"
)

// Valid reports whether the aggregation is one of the known aggregations.
func (a Aggregation) Valid() bool {
	switch a {
	case AggSum, AggAverage, AggLatest:
		return true
	}
	return false
}

// PolicyKind distinguishes percentage adjustments from absolute deltas.
type PolicyKind string

const (
	PolicyPercentage PolicyKind = "percentage"
	PolicyAbsolute   PolicyKind = "absolute"
)

// Valid reports whether the policy kind is known.
func (k PolicyKind) Valid() bool {
	return k == PolicyPercentage || k == PolicyAbsolute
}

// PolicyStatus tracks the lifecycle of a planned initiative.
type PolicyStatus string

const (
	PolicyPlanned    PolicyStatus = "planned"
	PolicyInProgress PolicyStatus = "in_progress"
	PolicyCompleted  PolicyStatus = "completed"
)

// Valid reports whether the status is known.
func (s PolicyStatus) Valid() bool {
	switch s {
	case PolicyPlanned, PolicyInProgress, PolicyCompleted:
		return true
	}
	return false
}

// Position is a layout hint for rendering. It carries no evaluation
// semantics.
type Position struct {
	X float64
	Y float64
}

// DataBinding references an external tabular column and the aggregation
// used to reduce it to a single value. Bindings are resolved freshly on
// every evaluation; they are never invalidated implicitly.
type DataBinding struct {
	SourceID    string
	ColumnID    string
	Aggregation Aggregation
}

// Node is a single business metric or driver in the tree.
//
// At evaluation time a node's value comes from exactly one of: its
// children (if it has any), its data binding, or its raw literal value.
// A node with children ignores RawValue and Binding.
type Node struct {
	ID       string
	Label    string
	Kind     NodeKind
	Position Position
	Binding  *DataBinding
	RawValue *float64
}

// Relationship is a directed parent-child edge. The operator on the edge
// mirrors the parent's combination operator.
type Relationship struct {
	ID       string
	ParentID string
	ChildID  string
	Operator Operator
}

// Policy is a hypothetical adjustment to one node's value used for
// what-if simulation. Cost and duration feed the reporting summary, not
// the value computation.
type Policy struct {
	ID             string
	TargetNodeID   string
	Kind           PolicyKind
	Value          float64
	Cost           float64
	DurationMonths int
	Status         PolicyStatus
}

func (p *Policy) validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: policy kind %q", ErrInvalidEnum, p.Kind)
	}
	if p.Status == "" {
		p.Status = PolicyPlanned
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: policy status %q", ErrInvalidEnum, p.Status)
	}
	return nil
}
