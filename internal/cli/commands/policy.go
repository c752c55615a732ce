package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage what-if policies",
	}
	cmd.AddCommand(newPolicyAddCommand())
	cmd.AddCommand(newPolicyStatusCommand())
	cmd.AddCommand(newPolicyRemoveCommand())
	return cmd
}

func newPolicyAddCommand() *cobra.Command {
	var kind string
	var cost float64
	var durationMonths int

	cmd := &cobra.Command{
		Use:   "add <tree-id> <target-node-id> <value>",
		Short: "Add a what-if policy targeting a node",
		Long: `Add a what-if policy targeting a node. A percentage policy shifts the
node's value by value percent; an absolute policy adds value to it.
Policies only take effect when selected at evaluation time.`,
		Example: `  # Raise a driver by 10 percent, costing 50k
  drivertree policy add 3f1c... a1b2... 10 --kind percentage --cost 50000

  # Add a flat 200 to a driver
  drivertree policy add 3f1c... a1b2... 200 --kind absolute`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}
			p := &tree.Policy{
				TargetNodeID:   args[1],
				Kind:           tree.PolicyKind(kind),
				Value:          value,
				Cost:           cost,
				DurationMonths: durationMonths,
			}
			if !p.Kind.Valid() {
				return fmt.Errorf("%w: policy kind %q", tree.ErrInvalidEnum, kind)
			}
			if err := cmdCtx.Store.CreatePolicy(args[0], p); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Added policy " + p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "percentage", "Policy kind (percentage|absolute)")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Implementation cost")
	cmd.Flags().IntVar(&durationMonths, "duration", 0, "Duration in months")
	return cmd
}

func newPolicyStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <policy-id> <status>",
		Short: "Update a policy's lifecycle status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.UpdatePolicyStatus(args[0], tree.PolicyStatus(args[1])); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Updated policy " + args[0])
			return nil
		},
	}
}

func newPolicyRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <policy-id>",
		Short: "Remove a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.DeletePolicy(args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Removed policy " + args[0])
			return nil
		},
	}
}
