package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverstack-labs/drivertree/internal/testutil"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

func fv(v float64) *float64 { return &v }

func buildTemplate(t *testing.T) *tree.Tree {
	t.Helper()
	tpl := tree.New("tpl-1", "proj-templates", "Retail margin template")

	root := &tree.Node{ID: "root", Label: "Margin", Kind: tree.KindRoot}
	rev := &tree.Node{ID: "rev", Label: "Revenue", Kind: tree.KindDriver, RawValue: fv(1000)}
	cost := &tree.Node{ID: "cost", Label: "Cost", Kind: tree.KindDriver, RawValue: fv(400)}
	units := &tree.Node{
		ID: "units", Label: "Units", Kind: tree.KindMetric,
		Binding: &tree.DataBinding{SourceID: "sheet_1", ColumnID: "units", Aggregation: tree.AggSum},
	}
	for _, n := range []*tree.Node{root, rev, cost, units} {
		require.NoError(t, tpl.AddNode(n))
	}
	_, err := tpl.AddRelationship("root", "rev", tree.OpRatio)
	require.NoError(t, err)
	_, err = tpl.AddRelationship("root", "cost", tree.OpRatio)
	require.NoError(t, err)
	_, err = tpl.AddRelationship("rev", "units", tree.OpSum)
	require.NoError(t, err)
	require.NoError(t, tpl.AddPolicy(&tree.Policy{
		ID: "pol-1", TargetNodeID: "cost", Kind: tree.PolicyPercentage, Value: -5, Cost: 2000,
	}))
	return tpl
}

func TestImport_CopiesStructure(t *testing.T) {
	tpl := buildTemplate(t)
	im := New(testutil.NewTestLogger(t))

	got, err := im.Import(tpl, "proj-42", "My margin tree")
	require.NoError(t, err)

	assert.Equal(t, "proj-42", got.ProjectID)
	assert.Equal(t, "My margin tree", got.Name)
	assert.NotEqual(t, tpl.ID, got.ID)
	assert.Equal(t, tpl.NodeCount(), got.NodeCount())
	assert.Len(t, got.Relationships(), 3)
	assert.Len(t, got.Policies(), 1)

	// Same shape under fresh ids: root with two ratio children, first
	// child carrying a sum child of its own.
	rootID, ok := got.Root()
	require.True(t, ok)
	op, ok := got.Operator(rootID)
	require.True(t, ok)
	assert.Equal(t, tree.OpRatio, op)
	children := got.Children(rootID)
	require.Len(t, children, 2)

	revClone, ok := got.Node(children[0])
	require.True(t, ok)
	assert.Equal(t, "Revenue", revClone.Label)
	require.NotNil(t, revClone.RawValue)
	assert.Equal(t, 1000.0, *revClone.RawValue)

	grandchildren := got.Children(children[0])
	require.Len(t, grandchildren, 1)
	op, _ = got.Operator(children[0])
	assert.Equal(t, tree.OpSum, op)
}

func TestImport_FreshIDs(t *testing.T) {
	tpl := buildTemplate(t)
	got, err := New(nil).Import(tpl, "proj-42", "")
	require.NoError(t, err)

	srcIDs := make(map[string]bool)
	for _, n := range tpl.Nodes() {
		srcIDs[n.ID] = true
	}
	for _, n := range got.Nodes() {
		assert.False(t, srcIDs[n.ID], "node id %s reused from template", n.ID)
	}
	for _, p := range got.Policies() {
		assert.NotEqual(t, "pol-1", p.ID)
	}
}

func TestImport_DropsBindings(t *testing.T) {
	tpl := buildTemplate(t)
	got, err := New(nil).Import(tpl, "proj-42", "")
	require.NoError(t, err)

	for _, n := range got.Nodes() {
		assert.Nil(t, n.Binding, "node %q kept a template binding", n.Label)
	}
}

func TestImport_DefaultsNameFromTemplate(t *testing.T) {
	tpl := buildTemplate(t)
	got, err := New(nil).Import(tpl, "proj-42", "")
	require.NoError(t, err)
	assert.Equal(t, "Retail margin template", got.Name)
}

func TestImport_PolicyTargetsRemapped(t *testing.T) {
	tpl := buildTemplate(t)
	got, err := New(nil).Import(tpl, "proj-42", "")
	require.NoError(t, err)

	p := got.Policies()[0]
	target, ok := got.Node(p.TargetNodeID)
	require.True(t, ok, "policy target must exist in the copy")
	assert.Equal(t, "Cost", target.Label)
	assert.Equal(t, tree.PolicyPercentage, p.Kind)
	assert.Equal(t, -5.0, p.Value)
	assert.Equal(t, 2000.0, p.Cost)
}

func TestImport_CorruptTemplateFailsAtomically(t *testing.T) {
	// A forged snapshot with a cyclic relationship set cannot be rebuilt
	// through the validating path.
	a := &tree.Node{ID: "a"}
	b := &tree.Node{ID: "b"}
	corrupt := tree.Rehydrate("tpl-bad", "p", "bad",
		[]*tree.Node{a, b},
		[]*tree.Relationship{
			{ID: "r1", ParentID: "a", ChildID: "b", Operator: tree.OpSum},
			{ID: "r2", ParentID: "b", ChildID: "a", Operator: tree.OpSum},
		}, nil)

	got, err := New(nil).Import(corrupt, "proj-42", "")
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestImport_NilTemplate(t *testing.T) {
	got, err := New(nil).Import(nil, "proj-42", "")
	require.Error(t, err)
	assert.Nil(t, got)
}
