package commands

import (
	"github.com/spf13/cobra"
)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var asTemplate bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new empty driver tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := cmdCtx.Store.CreateTree(cmdCtx.Cfg.ProjectID, args[0], asTemplate)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Created tree " + rec.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asTemplate, "template", false, "Mark the tree as a reusable template")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tree-id>",
		Short: "Delete a driver tree and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.DeleteTree(args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Deleted tree " + args[0])
			return nil
		},
	}
}
