package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

func TestApply_Percentage(t *testing.T) {
	p := &tree.Policy{Kind: tree.PolicyPercentage, Value: 10}
	assert.Equal(t, 110.0, Apply(100, p))

	down := &tree.Policy{Kind: tree.PolicyPercentage, Value: -25}
	assert.Equal(t, 75.0, Apply(100, down))
}

func TestApply_Absolute(t *testing.T) {
	p := &tree.Policy{Kind: tree.PolicyAbsolute, Value: 15}
	assert.Equal(t, 115.0, Apply(100, p))

	down := &tree.Policy{Kind: tree.PolicyAbsolute, Value: -40}
	assert.Equal(t, 60.0, Apply(100, down))
}

func TestApplySequence_OrderMatters(t *testing.T) {
	abs := &tree.Policy{Kind: tree.PolicyAbsolute, Value: 10}
	pct := &tree.Policy{Kind: tree.PolicyPercentage, Value: 10}

	assert.InDelta(t, 121.0, ApplySequence(100, []*tree.Policy{abs, pct}), 1e-9)
	assert.InDelta(t, 120.0, ApplySequence(100, []*tree.Policy{pct, abs}), 1e-9)
}

func TestApplySequence_Empty(t *testing.T) {
	assert.Equal(t, 42.0, ApplySequence(42, nil))
}
