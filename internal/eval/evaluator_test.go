package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverstack-labs/drivertree/internal/binding"
	"github.com/driverstack-labs/drivertree/internal/testutil"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

func fp(v float64) *float64 { return &v }

// mapFetcher serves columns from a map and counts fetches.
type mapFetcher struct {
	columns map[string][]binding.Row
	calls   int
}

func (f *mapFetcher) FetchColumn(_ context.Context, sourceID, columnID string) ([]binding.Row, error) {
	f.calls++
	rows, ok := f.columns[sourceID+"/"+columnID]
	if !ok {
		return nil, errors.New("source unreachable")
	}
	return rows, nil
}

// sumTree builds root R (sum) with literal children A=10, B=20.
func sumTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("t1", "p1", "revenue")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Label: "Root", Kind: tree.KindRoot}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "A", Label: "A", RawValue: fp(10)}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "B", Label: "B", RawValue: fp(20)}))
	_, err := tr.AddRelationship("R", "A", tree.OpSum)
	require.NoError(t, err)
	_, err = tr.AddRelationship("R", "B", tree.OpSum)
	require.NoError(t, err)
	return tr
}

func TestEvaluate_Sum(t *testing.T) {
	e := New(nil, testutil.NewTestLogger(t))

	res, err := e.Evaluate(context.Background(), sumTree(t), nil)
	require.NoError(t, err)

	r, ok := res.Node("R")
	require.True(t, ok)
	assert.Equal(t, 30.0, r.Baseline)
	assert.Equal(t, 30.0, r.Simulated, "no policy set: simulated mirrors baseline")
	assert.False(t, r.Unresolved)
	assert.False(t, r.Degenerate)
}

func TestEvaluate_Product(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Kind: tree.KindRoot}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "A", RawValue: fp(3)}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "B", RawValue: fp(4)}))
	_, err := tr.AddRelationship("R", "A", tree.OpProduct)
	require.NoError(t, err)
	_, err = tr.AddRelationship("R", "B", tree.OpProduct)
	require.NoError(t, err)

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Nodes["R"].Baseline)
}

func TestEvaluate_Average(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Kind: tree.KindRoot}))
	for id, v := range map[string]float64{"A": 10, "B": 20, "C": 60} {
		require.NoError(t, tr.AddNode(&tree.Node{ID: id, RawValue: fp(v)}))
	}
	for _, id := range []string{"A", "B", "C"} {
		_, err := tr.AddRelationship("R", id, tree.OpAverage)
		require.NoError(t, err)
	}

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Nodes["R"].Baseline)
}

func TestEvaluate_Ratio(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Kind: tree.KindRoot}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "num", RawValue: fp(84)}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "den", RawValue: fp(2)}))
	_, err := tr.AddRelationship("R", "num", tree.OpRatio)
	require.NoError(t, err)
	_, err = tr.AddRelationship("R", "den", tree.OpRatio)
	require.NoError(t, err)

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.Nodes["R"].Baseline)
	assert.False(t, res.Nodes["R"].Degenerate)
}

func TestEvaluate_RatioDivisionByZero(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Kind: tree.KindRoot}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "num", RawValue: fp(84)}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "den", RawValue: fp(0)}))
	_, err := tr.AddRelationship("R", "num", tree.OpRatio)
	require.NoError(t, err)
	_, err = tr.AddRelationship("R", "den", tree.OpRatio)
	require.NoError(t, err)

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Nodes["R"].Baseline, "division by zero degrades to zero, not Inf")
	assert.True(t, res.Nodes["R"].Degenerate)
}

func TestEvaluate_RatioArity(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "R", Kind: tree.KindRoot}))
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, tr.AddNode(&tree.Node{ID: id, RawValue: fp(1)}))
		_, err := tr.AddRelationship("R", id, tree.OpRatio)
		require.NoError(t, err)
	}

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	assert.ErrorIs(t, err, ErrInvalidOperatorArity)
	assert.Nil(t, res, "structural errors return no partial result")
}

func TestEvaluate_LeafZeroDefault(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "bare"}))

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	nr := res.Nodes["bare"]
	assert.Equal(t, 0.0, nr.Baseline)
	assert.False(t, nr.Unresolved)
}

func TestEvaluate_NodeWithChildrenIgnoresOwnValue(t *testing.T) {
	tr := sumTree(t)
	// Give the root a literal and a binding; both must be ignored since it
	// has children.
	root, _ := tr.Node("R")
	root.RawValue = fp(999)
	root.Binding = &tree.DataBinding{SourceID: "s", ColumnID: "c", Aggregation: tree.AggSum}

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Nodes["R"].Baseline)
	assert.False(t, res.Nodes["R"].Unresolved)
}

func TestEvaluate_Determinism(t *testing.T) {
	tr := sumTree(t)
	require.NoError(t, tr.AddPolicy(&tree.Policy{ID: "p1", TargetNodeID: "A", Kind: tree.PolicyPercentage, Value: 10}))
	e := New(nil, nil)

	first, err := e.Evaluate(context.Background(), tr, []string{"p1"})
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), tr, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, first, second, "unmutated tree must evaluate identically")
}

func TestEvaluate_PercentagePolicy(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "A", RawValue: fp(100)}))
	require.NoError(t, tr.AddPolicy(&tree.Policy{ID: "pol", TargetNodeID: "A", Kind: tree.PolicyPercentage, Value: 10}))

	res, err := New(nil, nil).Evaluate(context.Background(), tr, []string{"pol"})
	require.NoError(t, err)
	nr := res.Nodes["A"]
	assert.Equal(t, 100.0, nr.Baseline)
	assert.Equal(t, 110.0, nr.Simulated)
	assert.Equal(t, []string{"pol"}, nr.Policies)
	assert.Equal(t, []string{"pol"}, res.Applied)
}

func TestEvaluate_PolicyAdjustsInputToParent(t *testing.T) {
	tr := sumTree(t)
	require.NoError(t, tr.AddPolicy(&tree.Policy{ID: "pol", TargetNodeID: "A", Kind: tree.PolicyAbsolute, Value: 5}))

	res, err := New(nil, nil).Evaluate(context.Background(), tr, []string{"pol"})
	require.NoError(t, err)
	// A's adjusted value feeds R's sum in the simulated pass.
	assert.Equal(t, 15.0, res.Nodes["A"].Simulated)
	assert.Equal(t, 35.0, res.Nodes["R"].Simulated)
	assert.Equal(t, 30.0, res.Nodes["R"].Baseline)
}

func TestEvaluate_PoliciesApplySequentiallyInCreationOrder(t *testing.T) {
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "A", RawValue: fp(100)}))
	// +10 absolute first, then +10%: (100+10)*1.1 = 121.
	require.NoError(t, tr.AddPolicy(&tree.Policy{ID: "abs", TargetNodeID: "A", Kind: tree.PolicyAbsolute, Value: 10}))
	require.NoError(t, tr.AddPolicy(&tree.Policy{ID: "pct", TargetNodeID: "A", Kind: tree.PolicyPercentage, Value: 10}))

	// Request order must not matter; creation order governs.
	res, err := New(nil, nil).Evaluate(context.Background(), tr, []string{"pct", "abs"})
	require.NoError(t, err)
	assert.InDelta(t, 121.0, res.Nodes["A"].Simulated, 1e-9)
	assert.Equal(t, []string{"abs", "pct"}, res.Nodes["A"].Policies)
}

func TestEvaluate_UnknownPolicyID(t *testing.T) {
	tr := sumTree(t)

	_, err := New(nil, nil).Evaluate(context.Background(), tr, []string{"ghost"})
	assert.ErrorIs(t, err, tree.ErrPolicyNotFound)
}

func TestEvaluate_EmptyPolicySet(t *testing.T) {
	tr := sumTree(t)

	res, err := New(nil, nil).Evaluate(context.Background(), tr, []string{})
	require.NoError(t, err)
	assert.Equal(t, res.Nodes["R"].Baseline, res.Nodes["R"].Simulated)
	assert.NotNil(t, res.Applied)
	assert.Empty(t, res.Applied)
}

func TestEvaluate_BindingResolved(t *testing.T) {
	f := &mapFetcher{columns: map[string][]binding.Row{
		"sheet/rev": {{Key: "a", Value: 7}, {Key: "b", Value: 13}},
	}}
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{
		ID:      "A",
		Binding: &tree.DataBinding{SourceID: "sheet", ColumnID: "rev", Aggregation: tree.AggSum},
	}))

	res, err := New(f, testutil.NewTestLogger(t)).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Nodes["A"].Baseline)
	assert.False(t, res.Nodes["A"].Unresolved)
}

func TestEvaluate_GracefulDegradationOnBindingFailure(t *testing.T) {
	f := &mapFetcher{columns: map[string][]binding.Row{}} // every fetch fails
	tr := sumTree(t)
	require.NoError(t, tr.AddNode(&tree.Node{
		ID:      "C",
		Binding: &tree.DataBinding{SourceID: "gone", ColumnID: "col", Aggregation: tree.AggLatest},
	}))
	_, err := tr.AddRelationship("R", "C", tree.OpSum)
	require.NoError(t, err)

	res, err := New(f, testutil.NewTestLogger(t)).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err, "binding failure must not abort the evaluation")
	assert.True(t, res.Nodes["C"].Unresolved)
	assert.Equal(t, 0.0, res.Nodes["C"].Baseline)
	// The rest of the tree still computes.
	assert.Equal(t, 30.0, res.Nodes["R"].Baseline)
}

func TestEvaluate_BindingFetchedOncePerEvaluation(t *testing.T) {
	f := &mapFetcher{columns: map[string][]binding.Row{
		"sheet/rev": {{Key: "a", Value: 5}},
	}}
	b := &tree.DataBinding{SourceID: "sheet", ColumnID: "rev", Aggregation: tree.AggSum}
	tr := tree.New("t1", "p1", "t")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "A", Binding: b}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "B", Binding: &tree.DataBinding{SourceID: "sheet", ColumnID: "rev", Aggregation: tree.AggSum}}))

	_, err := New(f, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "two nodes on the same column share one fetch per evaluation")
}

func TestEvaluate_CycleAtRuntime(t *testing.T) {
	// AddRelationship rejects cycles, so forge a corrupted snapshot the way
	// a broken store could: Rehydrate trusts its input.
	nodes := []*tree.Node{{ID: "a"}, {ID: "b"}}
	rels := []*tree.Relationship{
		{ID: "r1", ParentID: "a", ChildID: "b", Operator: tree.OpSum},
		{ID: "r2", ParentID: "b", ChildID: "a", Operator: tree.OpSum},
	}
	tr := tree.Rehydrate("t1", "p1", "corrupt", nodes, rels, nil)

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	assert.ErrorIs(t, err, ErrCycleAtRuntime)
	assert.Nil(t, res)
}

func TestEvaluate_DisconnectedNodesContributeNothing(t *testing.T) {
	tr := sumTree(t)
	require.NoError(t, tr.AddNode(&tree.Node{ID: "floating", RawValue: fp(1000)}))

	res, err := New(nil, nil).Evaluate(context.Background(), tr, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Nodes["R"].Baseline)
	assert.Equal(t, 1000.0, res.Nodes["floating"].Baseline)
}
