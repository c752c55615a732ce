package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverstack-labs/drivertree/internal/eval"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

func buildTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("t1", "p1", "Revenue model")
	require.NoError(t, tr.AddNode(&tree.Node{ID: "root", Label: "Revenue", Kind: tree.KindRoot}))
	require.NoError(t, tr.AddNode(&tree.Node{ID: "a", Label: "Online"}))
	_, err := tr.AddRelationship("root", "a", tree.OpSum)
	require.NoError(t, err)
	require.NoError(t, tr.AddPolicy(&tree.Policy{
		ID: "p1", TargetNodeID: "a", Kind: tree.PolicyPercentage, Value: 10, Cost: 500,
	}))
	require.NoError(t, tr.AddPolicy(&tree.Policy{
		ID: "p2", TargetNodeID: "a", Kind: tree.PolicyAbsolute, Value: 20, Cost: 0,
	}))
	return tr
}

func TestSummarize(t *testing.T) {
	tr := buildTree(t)
	res := &eval.Result{
		Nodes: map[string]eval.NodeResult{
			"root": {Baseline: 100, Simulated: 130},
			"a":    {Baseline: 100, Simulated: 130, Policies: []string{"p1", "p2"}},
		},
		Applied: []string{"p1", "p2"},
	}

	s := Summarize(tr, res)
	assert.Equal(t, "root", s.RootID)
	assert.Equal(t, "Revenue", s.RootLabel)
	assert.Equal(t, 100.0, s.Baseline)
	assert.Equal(t, 130.0, s.Simulated)
	assert.Equal(t, 30.0, s.Delta)
	assert.Equal(t, 500.0, s.TotalCost)
	assert.InDelta(t, 0.06, s.ROI, 1e-9)
	assert.Equal(t, 2, s.PolicyCount)
	assert.False(t, s.HasUnresolved)
	assert.False(t, s.HasDegenerate)
}

func TestSummarize_ZeroCost(t *testing.T) {
	tr := buildTree(t)
	res := &eval.Result{
		Nodes:   map[string]eval.NodeResult{"root": {Baseline: 100, Simulated: 120}},
		Applied: []string{"p2"},
	}

	s := Summarize(tr, res)
	assert.Equal(t, 0.0, s.TotalCost)
	assert.Equal(t, 0.0, s.ROI)
	assert.Equal(t, 20.0, s.Delta)
}

func TestSummarize_Warnings(t *testing.T) {
	tr := buildTree(t)
	res := &eval.Result{
		Nodes: map[string]eval.NodeResult{
			"root": {Degenerate: true},
			"a":    {Unresolved: true},
		},
	}

	s := Summarize(tr, res)
	assert.True(t, s.HasUnresolved)
	assert.True(t, s.HasDegenerate)
	assert.Equal(t, 0, s.PolicyCount)
}

func TestSummarize_NilInputs(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Equal(t, Summary{}, s)
}
