package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/template"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <template-id>",
		Short: "Create a new tree from a template",
		Long: `Create a new tree by deep-copying a template. Every node, link and
policy gets a fresh id; data bindings are dropped because they point at
the template's sources. The import is atomic: a template that cannot be
copied leaves nothing behind.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the new tree (defaults to the template's)")
	return cmd
}

func runImport(cmd *cobra.Command, templateID, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := cmdCtx.Store.GetTree(templateID)
	if err != nil {
		return err
	}
	if !rec.IsTemplate {
		return fmt.Errorf("tree %s is not a template", templateID)
	}

	src, err := cmdCtx.Store.LoadTree(templateID)
	if err != nil {
		return err
	}

	importer := template.New(cmdCtx.Logger)
	copied, err := importer.Import(src, cmdCtx.Cfg.ProjectID, name)
	if err != nil {
		return err
	}
	if err := cmdCtx.Store.SaveTree(copied, false); err != nil {
		return err
	}

	cmdCtx.Renderer.Success("Imported template into tree " + copied.ID)
	return nil
}
