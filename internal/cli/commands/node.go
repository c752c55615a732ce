package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// NewNodeCommand creates the node command group.
func NewNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage tree nodes",
	}
	cmd.AddCommand(newNodeAddCommand())
	cmd.AddCommand(newNodeValueCommand())
	cmd.AddCommand(newNodeBindCommand())
	cmd.AddCommand(newNodeRemoveCommand())
	return cmd
}

func newNodeAddCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add <tree-id> <label>",
		Short: "Add a node to a tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n := &tree.Node{Label: args[1], Kind: tree.NodeKind(kind)}
			if n.Kind != "" && !n.Kind.Valid() {
				return fmt.Errorf("%w: node kind %q", tree.ErrInvalidEnum, kind)
			}
			if err := cmdCtx.Store.CreateNode(args[0], n); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Added node " + n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Node kind (root|driver|kpi|metric)")
	return cmd
}

func newNodeValueCommand() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "value <node-id> [value]",
		Short: "Set or clear a node's raw value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var rawValue *float64
			if !clear {
				if len(args) < 2 {
					return fmt.Errorf("value required unless --clear is set")
				}
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", args[1], err)
				}
				rawValue = &v
			}
			if err := cmdCtx.Store.UpdateNodeValue(args[0], rawValue); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Updated node " + args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the raw value")
	return cmd
}

func newNodeBindCommand() *cobra.Command {
	var aggregation string
	var clear bool

	cmd := &cobra.Command{
		Use:   "bind <node-id> [source-id] [column-id]",
		Short: "Bind a node to an external data column",
		Long: `Bind a node to a column of an external tabular source. A bound leaf
takes its value from the column, reduced by the aggregation rule.

Bindings stay put when the tree is restructured; use --clear to remove
one explicitly.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var b *tree.DataBinding
			if !clear {
				if len(args) < 3 {
					return fmt.Errorf("source-id and column-id required unless --clear is set")
				}
				b = &tree.DataBinding{
					SourceID:    args[1],
					ColumnID:    args[2],
					Aggregation: tree.Aggregation(aggregation),
				}
			}
			if err := cmdCtx.Store.SetNodeBinding(args[0], b); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Updated binding on node " + args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&aggregation, "aggregation", "sum", "Aggregation rule (sum|average|latest)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the binding")
	return cmd
}

func newNodeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <node-id>",
		Short: "Remove a node and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.DeleteNode(args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Removed node " + args[0])
			return nil
		},
	}
}
