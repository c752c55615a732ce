// Package eval implements the driver-tree evaluator: a deterministic
// bottom-up pass computing each node's value from its children and
// operator, plus a second decoration pass overlaying policies for
// what-if simulation.
package eval

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/driverstack-labs/drivertree/internal/binding"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

// maxConcurrentFetches bounds the binding prefetch fan-out. The dominant
// evaluation cost is the external fetch, not the in-memory walk.
const maxConcurrentFetches = 8

// visitState tracks a node through a single evaluation run.
type visitState int

const (
	stateUnvisited visitState = iota
	stateResolving
	stateResolved
)

// Evaluator computes node values over an immutable tree snapshot. It is a
// pure function of the snapshot it is given: it never persists anything,
// and callers enforce mutation/evaluation exclusion outside.
type Evaluator struct {
	fetcher binding.ColumnFetcher
	logger  *slog.Logger
}

// New creates an evaluator. fetcher may be nil when every leaf carries a
// raw value; a node with a binding then degrades to unresolved.
func New(fetcher binding.ColumnFetcher, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{fetcher: fetcher, logger: logger}
}

// passValue is the outcome of one traversal pass for one node.
type passValue struct {
	value      float64
	unresolved bool
	degenerate bool
}

// pass holds the working state of a single bottom-up traversal.
type pass struct {
	t        *tree.Tree
	resolver *binding.Resolver
	states   map[string]visitState
	values   map[string]passValue
	// active maps node id -> policies to overlay, nil for the baseline pass.
	active map[string][]*tree.Policy
	ctx    context.Context
}

// Evaluate performs the baseline pass and, if policyIDs is non-nil, the
// policy decoration pass. Structural errors abort with no partial result;
// binding failures degrade the affected leaf to zero with the Unresolved
// flag so the rest of the tree still computes.
func (e *Evaluator) Evaluate(ctx context.Context, t *tree.Tree, policyIDs []string) (*Result, error) {
	// A fresh resolver per evaluation: external data refreshed between
	// requests is always reflected, duplicate bindings within this request
	// cost one fetch.
	resolver := binding.NewResolver(e.fetcher, e.logger)

	var active map[string][]*tree.Policy
	if policyIDs != nil {
		var err error
		active, err = activePolicies(t, policyIDs)
		if err != nil {
			return nil, err
		}
	}

	e.prefetchBindings(ctx, t, resolver)

	baseline, err := e.runPass(ctx, t, resolver, nil)
	if err != nil {
		return nil, err
	}

	simulated := baseline
	if policyIDs != nil {
		simulated, err = e.runPass(ctx, t, resolver, active)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Nodes: make(map[string]NodeResult, t.NodeCount())}
	if policyIDs != nil {
		// Non-nil even when empty, so callers can tell a zero-policy
		// simulation apart from a baseline-only run.
		res.Applied = append(make([]string, 0, len(policyIDs)), policyIDs...)
	}
	for _, n := range t.Nodes() {
		b := baseline[n.ID]
		s := simulated[n.ID]
		nr := NodeResult{
			Baseline:   b.value,
			Simulated:  s.value,
			Unresolved: b.unresolved || s.unresolved,
			Degenerate: b.degenerate || s.degenerate,
		}
		for _, p := range active[n.ID] {
			nr.Policies = append(nr.Policies, p.ID)
		}
		res.Nodes[n.ID] = nr
	}
	return res, nil
}

// activePolicies validates the requested policy set and groups it by
// target node, preserving creation order within each node.
func activePolicies(t *tree.Tree, policyIDs []string) (map[string][]*tree.Policy, error) {
	requested := make(map[string]bool, len(policyIDs))
	for _, id := range policyIDs {
		if _, ok := t.Policy(id); !ok {
			return nil, fmt.Errorf("%w: %s", tree.ErrPolicyNotFound, id)
		}
		requested[id] = true
	}
	active := make(map[string][]*tree.Policy)
	// Walk tree policy order, not request order, so multiple policies on
	// one node apply in creation order.
	for _, p := range t.Policies() {
		if requested[p.ID] {
			active[p.TargetNodeID] = append(active[p.TargetNodeID], p)
		}
	}
	return active, nil
}

// prefetchBindings resolves all leaf bindings concurrently into the
// resolver's memo. Leaf bindings have no data dependency on each other, so
// only the combination walk has to stay sequential. Failures are recorded
// in the memo and surface as unresolved leaves during the walk.
func (e *Evaluator) prefetchBindings(ctx context.Context, t *tree.Tree, resolver *binding.Resolver) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, n := range t.Nodes() {
		if n.Binding == nil || len(t.Children(n.ID)) > 0 {
			continue
		}
		b := n.Binding
		g.Go(func() error {
			// Error outcomes are memoized too; degradation happens later.
			_, _ = resolver.Resolve(gctx, b)
			return nil
		})
	}
	_ = g.Wait()
}

// runPass performs one deterministic bottom-up traversal. With active
// policies it produces the simulated values, otherwise the baseline.
func (e *Evaluator) runPass(ctx context.Context, t *tree.Tree, resolver *binding.Resolver, active map[string][]*tree.Policy) (map[string]passValue, error) {
	p := &pass{
		t:        t,
		resolver: resolver,
		states:   make(map[string]visitState, t.NodeCount()),
		values:   make(map[string]passValue, t.NodeCount()),
		active:   active,
		ctx:      ctx,
	}
	// Creation order over all nodes covers disconnected subgraphs and
	// keeps traversal deterministic.
	for _, n := range t.Nodes() {
		if _, err := p.resolve(n.ID); err != nil {
			return nil, err
		}
	}
	return p.values, nil
}

func (p *pass) resolve(id string) (passValue, error) {
	switch p.states[id] {
	case stateResolved:
		return p.values[id], nil
	case stateResolving:
		// The graph layer should have made this unreachable; fail fast
		// instead of looping.
		return passValue{}, fmt.Errorf("%w: node %s", ErrCycleAtRuntime, id)
	}
	p.states[id] = stateResolving

	children := p.t.Children(id)
	var pv passValue
	if len(children) == 0 {
		pv = p.leafValue(id)
	} else {
		var err error
		pv, err = p.combine(id, children)
		if err != nil {
			return passValue{}, err
		}
	}

	// Decoration: the node's own value is adjusted before it feeds its
	// parent's combination.
	if policies := p.active[id]; len(policies) > 0 {
		pv.value = ApplySequence(pv.value, policies)
	}

	p.states[id] = stateResolved
	p.values[id] = pv
	return pv, nil
}

// leafValue computes a leaf: binding resolution if bound, else the raw
// literal, else an explicit zero. Never propagates a missing value upward.
func (p *pass) leafValue(id string) passValue {
	n, _ := p.t.Node(id)
	if n.Binding != nil {
		v, err := p.resolver.Resolve(p.ctx, n.Binding)
		if err != nil {
			return passValue{value: 0, unresolved: true}
		}
		return passValue{value: v}
	}
	if n.RawValue != nil {
		return passValue{value: *n.RawValue}
	}
	return passValue{value: 0}
}

func (p *pass) combine(id string, children []string) (passValue, error) {
	// Unresolved/degenerate flags stay on the node they occurred at; the
	// parent just consumes the degraded zero.
	vals := make([]float64, 0, len(children))
	for _, childID := range children {
		cv, err := p.resolve(childID)
		if err != nil {
			return passValue{}, err
		}
		vals = append(vals, cv.value)
	}

	op, _ := p.t.Operator(id)
	switch op {
	case tree.OpSum:
		var total float64
		for _, v := range vals {
			total += v
		}
		return passValue{value: total}, nil
	case tree.OpProduct:
		total := 1.0
		for _, v := range vals {
			total *= v
		}
		return passValue{value: total}, nil
	case tree.OpAverage:
		var total float64
		for _, v := range vals {
			total += v
		}
		return passValue{value: total / float64(len(vals))}, nil
	case tree.OpRatio:
		if len(vals) != 2 {
			return passValue{}, fmt.Errorf("%w: ratio node %s has %d children, needs 2",
				ErrInvalidOperatorArity, id, len(vals))
		}
		if vals[1] == 0 {
			// Degrade instead of producing Inf/NaN; callers surface this
			// as a warning.
			return passValue{value: 0, degenerate: true}, nil
		}
		return passValue{value: vals[0] / vals[1]}, nil
	default:
		return passValue{}, fmt.Errorf("%w: operator %q on node %s", tree.ErrInvalidEnum, op, id)
	}
}
