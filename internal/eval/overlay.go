package eval

import "github.com/driverstack-labs/drivertree/internal/tree"

// Apply returns the policy-adjusted value for a base value. Pure function,
// no side effects: percentage policies scale by (1 + value/100), absolute
// policies add their delta.
func Apply(base float64, p *tree.Policy) float64 {
	switch p.Kind {
	case tree.PolicyPercentage:
		return base * (1 + p.Value/100)
	case tree.PolicyAbsolute:
		return base + p.Value
	default:
		// Unknown kinds are rejected at construction time; treat as no-op
		// rather than poisoning the result.
		return base
	}
}

// ApplySequence applies policies one after another in the given order.
// Order matters (a percentage after an absolute differs from the reverse)
// and callers pass policies in creation order.
func ApplySequence(base float64, policies []*tree.Policy) float64 {
	v := base
	for _, p := range policies {
		v = Apply(v, p)
	}
	return v
}
