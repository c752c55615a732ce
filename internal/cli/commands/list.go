package commands

import (
	"encoding/json"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/cli/output"
	"github.com/driverstack-labs/drivertree/internal/state"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var templatesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List driver trees",
		Long: `List all stored driver trees with their metadata.

Use --output to override the format: auto, text, markdown, json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, templatesOnly)
		},
	}

	cmd.Flags().BoolVar(&templatesOnly, "templates", false, "Show only templates")
	return cmd
}

func runList(cmd *cobra.Command, templatesOnly bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := cmdCtx.Store.ListTrees()
	if err != nil {
		return err
	}
	if templatesOnly {
		filtered := records[:0]
		for _, rec := range records {
			if rec.IsTemplate {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return listTable(r, records)
}

func listTable(r *output.Renderer, records []*state.TreeRecord) error {
	if len(records) == 0 {
		r.Println("No trees found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Name", "Project", "Template", "Updated"})

	for _, rec := range records {
		template := ""
		if rec.IsTemplate {
			template = "yes"
		}
		tw.AppendRow(table.Row{
			rec.ID, rec.Name, rec.ProjectID, template,
			rec.UpdatedAt.Format(time.RFC3339),
		})
	}
	tw.Render()
	return nil
}
