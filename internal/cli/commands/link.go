package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// NewLinkCommand creates the link command.
func NewLinkCommand() *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "link <tree-id> <parent-node-id> <child-node-id>",
		Short: "Link a child node under a parent",
		Long: `Link a child node under a parent with a combination operator.

The link is validated before it is stored: a child can have only one
parent, all children of a parent share one operator, and a link that
would close a cycle is rejected.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, args[0], args[1], args[2], tree.Operator(operator))
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "sum", "Combination operator (sum|product|average|ratio)")
	return cmd
}

func runLink(cmd *cobra.Command, treeID, parentID, childID string, op tree.Operator) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Validate against the in-memory graph first, then persist the edge
	// it produced.
	t, err := cmdCtx.Store.LoadTree(treeID)
	if err != nil {
		return err
	}
	rel, err := t.AddRelationship(parentID, childID, op)
	if err != nil {
		return err
	}
	if err := cmdCtx.Store.CreateRelationship(treeID, rel); err != nil {
		return err
	}

	cmdCtx.Renderer.Success(fmt.Sprintf("Linked %s under %s (%s)", childID, parentID, op))
	return nil
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <relationship-id>",
		Short: "Remove a link, detaching the child subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.DeleteRelationship(args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Removed link " + args[0])
			return nil
		},
	}
}

// NewOperatorCommand creates the operator command.
func NewOperatorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "operator <tree-id> <parent-node-id> <operator>",
		Short: "Change the operator on all of a parent's links",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			treeID, parentID, op := args[0], args[1], tree.Operator(args[2])

			t, err := cmdCtx.Store.LoadTree(treeID)
			if err != nil {
				return err
			}
			if err := t.ChangeOperator(parentID, op); err != nil {
				return err
			}
			if err := cmdCtx.Store.UpdateOperator(treeID, parentID, op); err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Set operator %s on %s", op, parentID))
			return nil
		},
	}
}
