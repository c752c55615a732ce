package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/driverstack-labs/drivertree/internal/adapter"
	"github.com/driverstack-labs/drivertree/internal/binding"
	"github.com/driverstack-labs/drivertree/internal/cli/output"
	"github.com/driverstack-labs/drivertree/internal/eval"
	"github.com/driverstack-labs/drivertree/internal/report"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	var policyIDs []string

	cmd := &cobra.Command{
		Use:     "eval <tree-id>",
		Aliases: []string{"evaluate"},
		Short:   "Evaluate a driver tree",
		Long: `Evaluate a driver tree bottom-up and print the computed value of every
node. With --policy, the selected what-if policies are applied and the
simulated values are shown next to the baseline.`,
		Example: `  # Baseline evaluation
  drivertree eval 3f1c...

  # What-if simulation with two policies
  drivertree eval 3f1c... --policy a1b2... --policy c3d4...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], policyIDs)
		},
	}

	cmd.Flags().StringArrayVar(&policyIDs, "policy", nil, "Policy id to apply (repeatable)")
	return cmd
}

func runEval(cmd *cobra.Command, treeID string, policyIDs []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Store.LoadTree(treeID)
	if err != nil {
		return err
	}

	var fetcher binding.ColumnFetcher
	if cmdCtx.Cfg.Target != nil {
		a, err := adapter.Connect(cmd.Context(), cmdCtx.Cfg.Target.AdapterConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to target: %w", err)
		}
		defer a.Close()
		fetcher = a
	}

	// An empty --policy set means baseline only.
	if len(policyIDs) == 0 {
		policyIDs = nil
	}

	evaluator := eval.New(fetcher, cmdCtx.Logger)
	res, err := evaluator.Evaluate(cmd.Context(), t, policyIDs)
	if err != nil {
		return err
	}

	summary := report.Summarize(t, res)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return evalJSON(r, t, res, summary)
	}
	return evalTable(r, t, res, summary, policyIDs != nil)
}

func evalTable(r *output.Renderer, t *tree.Tree, res *eval.Result, summary report.Summary, simulated bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(table.StyleLight)

	if simulated {
		tw.AppendHeader(table.Row{"Node", "Kind", "Baseline", "Simulated", "Delta", "Notes"})
	} else {
		tw.AppendHeader(table.Row{"Node", "Kind", "Value", "Notes"})
	}

	for _, n := range t.Nodes() {
		nr, ok := res.Node(n.ID)
		if !ok {
			continue
		}
		notes := nodeNotes(r, nr)
		if simulated {
			tw.AppendRow(table.Row{
				n.Label, string(n.Kind),
				formatNumber(nr.Baseline), formatNumber(nr.Simulated),
				formatNumber(nr.Simulated - nr.Baseline), notes,
			})
		} else {
			tw.AppendRow(table.Row{n.Label, string(n.Kind), formatNumber(nr.Baseline), notes})
		}
	}
	tw.Render()

	if summary.RootID != "" {
		r.Println("")
		r.KeyValue("Root", summary.RootLabel)
		r.KeyValue("Baseline", formatNumber(summary.Baseline))
		if simulated {
			r.KeyValue("Simulated", formatNumber(summary.Simulated))
			r.KeyValue("Delta", formatNumber(summary.Delta))
			r.KeyValue("Policy cost", formatNumber(summary.TotalCost))
			if summary.TotalCost != 0 {
				r.KeyValue("ROI", fmt.Sprintf("%.2f", summary.ROI))
			}
		}
	}
	if summary.HasUnresolved {
		r.Warning("warning: some data bindings could not be resolved; affected leaves evaluated as 0")
	}
	if summary.HasDegenerate {
		r.Warning("warning: ratio with zero denominator; affected nodes evaluated as 0")
	}
	return nil
}

func nodeNotes(r *output.Renderer, nr eval.NodeResult) string {
	styles := r.Styles()
	styled := r.EffectiveMode() == output.ModeText

	switch {
	case nr.Unresolved && styled:
		return styles.Warning.Render("unresolved")
	case nr.Unresolved:
		return "unresolved"
	case nr.Degenerate && styled:
		return styles.Warning.Render("zero denominator")
	case nr.Degenerate:
		return "zero denominator"
	}
	return ""
}

func evalJSON(r *output.Renderer, t *tree.Tree, res *eval.Result, summary report.Summary) error {
	type nodeOut struct {
		ID         string   `json:"id"`
		Label      string   `json:"label"`
		Kind       string   `json:"kind"`
		Baseline   float64  `json:"baseline"`
		Simulated  float64  `json:"simulated"`
		Unresolved bool     `json:"unresolved,omitempty"`
		Degenerate bool     `json:"degenerate,omitempty"`
		Policies   []string `json:"policies,omitempty"`
	}
	out := struct {
		TreeID  string         `json:"tree_id"`
		Nodes   []nodeOut      `json:"nodes"`
		Applied []string       `json:"applied_policies,omitempty"`
		Summary report.Summary `json:"summary"`
	}{TreeID: t.ID, Applied: res.Applied, Summary: summary}

	for _, n := range t.Nodes() {
		nr, ok := res.Node(n.ID)
		if !ok {
			continue
		}
		out.Nodes = append(out.Nodes, nodeOut{
			ID: n.ID, Label: n.Label, Kind: string(n.Kind),
			Baseline: nr.Baseline, Simulated: nr.Simulated,
			Unresolved: nr.Unresolved, Degenerate: nr.Degenerate,
			Policies: nr.Policies,
		})
	}

	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
