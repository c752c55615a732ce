// Package report summarizes evaluation outcomes for presentation. It
// turns a raw evaluation result into the headline numbers a what-if
// comparison is read by: baseline vs simulated at the root, the delta,
// and the return on the applied policies' cost.
package report

import (
	"github.com/driverstack-labs/drivertree/internal/eval"
	"github.com/driverstack-labs/drivertree/internal/tree"
)

// Summary is the headline comparison of one evaluation.
type Summary struct {
	RootID        string
	RootLabel     string
	Baseline      float64
	Simulated     float64
	Delta         float64
	TotalCost     float64
	ROI           float64 // Delta / TotalCost, 0 when cost is 0
	PolicyCount   int
	HasUnresolved bool
	HasDegenerate bool
}

// Summarize builds a Summary from an evaluation result. The root value
// is read from the tree's root node; cost totals only the policies that
// were applied in this evaluation.
func Summarize(t *tree.Tree, res *eval.Result) Summary {
	var s Summary
	if t == nil || res == nil {
		return s
	}

	if rootID, ok := t.Root(); ok {
		s.RootID = rootID
		if n, ok := t.Node(rootID); ok {
			s.RootLabel = n.Label
		}
		if nr, ok := res.Node(rootID); ok {
			s.Baseline = nr.Baseline
			s.Simulated = nr.Simulated
			s.Delta = nr.Simulated - nr.Baseline
		}
	}

	s.PolicyCount = len(res.Applied)
	for _, id := range res.Applied {
		if p, ok := t.Policy(id); ok {
			s.TotalCost += p.Cost
		}
	}
	if s.TotalCost != 0 {
		s.ROI = s.Delta / s.TotalCost
	}

	for _, nr := range res.Nodes {
		if nr.Unresolved {
			s.HasUnresolved = true
		}
		if nr.Degenerate {
			s.HasDegenerate = true
		}
	}
	return s
}
