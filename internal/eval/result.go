package eval

// NodeResult holds the computed values for one node.
type NodeResult struct {
	// Baseline is the node's value with no policies applied.
	Baseline float64

	// Simulated is the node's value with the requested policy set applied.
	// Equal to Baseline when no policy set was requested.
	Simulated float64

	// Unresolved marks a leaf whose data binding could not be resolved;
	// its value degraded to zero. A soft warning, not a failure.
	Unresolved bool

	// Degenerate marks a ratio whose denominator was zero; its value
	// degraded to zero. A soft warning, not a failure.
	Degenerate bool

	// Policies lists the ids of the policies applied to this node during
	// the simulated pass, in application order.
	Policies []string
}

// Result maps node ids to their computed values plus applied-policy
// metadata. Evaluating the same unmutated tree twice yields identical
// Results.
type Result struct {
	// Nodes holds the per-node outcome for every node in the tree.
	Nodes map[string]NodeResult

	// Applied lists the policy ids that were in effect for the simulated
	// pass, in the order they were requested. Nil when evaluation ran
	// without a policy set.
	Applied []string
}

// Node returns the result for a node id.
func (r *Result) Node(id string) (NodeResult, bool) {
	nr, ok := r.Nodes[id]
	return nr, ok
}
