package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <tree-id>",
		Short: "Show a tree's structure and policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
	return cmd
}

func runShow(cmd *cobra.Command, treeID string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Store.LoadTree(treeID)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	r.Header(1, fmt.Sprintf("%s (%d nodes)", t.Name, t.NodeCount()))

	tw := table.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Label", "Kind", "Parent", "Operator", "Value"})

	for _, n := range t.Nodes() {
		parent := ""
		operator := ""
		if parentID, ok := t.Parent(n.ID); ok {
			if p, ok := t.Node(parentID); ok {
				parent = p.Label
			}
			if op, ok := t.Operator(parentID); ok {
				operator = string(op)
			}
		}
		tw.AppendRow(table.Row{n.ID, n.Label, string(n.Kind), parent, operator, describeValue(n)})
	}
	tw.Render()

	if policies := t.Policies(); len(policies) > 0 {
		r.Println("")
		r.Header(2, "Policies")

		pw := table.NewWriter()
		pw.SetOutputMirror(r.Writer())
		pw.SetStyle(table.StyleLight)
		pw.AppendHeader(table.Row{"ID", "Target", "Kind", "Value", "Cost", "Status"})
		for _, p := range policies {
			target := p.TargetNodeID
			if n, ok := t.Node(p.TargetNodeID); ok {
				target = n.Label
			}
			pw.AppendRow(table.Row{
				p.ID, target, string(p.Kind),
				formatNumber(p.Value), formatNumber(p.Cost), string(p.Status),
			})
		}
		pw.Render()
	}
	return nil
}

// describeValue renders a leaf's value origin: binding, raw value, or
// the implicit zero default.
func describeValue(n *tree.Node) string {
	if n.Binding != nil {
		return fmt.Sprintf("%s.%s (%s)", n.Binding.SourceID, n.Binding.ColumnID, n.Binding.Aggregation)
	}
	if n.RawValue != nil {
		return formatNumber(*n.RawValue)
	}
	return ""
}
