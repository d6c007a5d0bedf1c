package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClearingRate(t *testing.T) {
	assert.InDelta(t, 0.075, ClearingRate(ClearMidpoint, 0.10, 0.05), 1e-9)
	assert.InDelta(t, 0.10, ClearingRate(ClearRequestSide, 0.10, 0.05), 1e-9)
	assert.InDelta(t, 0.05, ClearingRate(ClearOfferSide, 0.10, 0.05), 1e-9)
}

func TestRateCurve_TwoSlopes(t *testing.T) {
	rc := RateCurve{Base: 0.02, Slope1: 0.04, Slope2: 0.3, TargetUtilization: 0.8}

	assert.InDelta(t, 0.02, rc.At(0), 1e-9)
	assert.InDelta(t, 0.02+0.04*0.5, rc.At(0.5), 1e-9)
	assert.InDelta(t, 0.02+0.04*0.8, rc.At(0.8), 1e-9)
	// Past the kink the steep slope takes over.
	assert.InDelta(t, 0.02+0.04*0.8+0.3*0.2, rc.At(1), 1e-9)
	// Utilization is clamped before evaluation.
	assert.InDelta(t, rc.At(0), rc.At(-2), 1e-9)
	assert.InDelta(t, rc.At(1), rc.At(3), 1e-9)
}

func TestRateCurve_IsMonotonic(t *testing.T) {
	rc := RateCurve{Base: 0.01, Slope1: 0.02, Slope2: 0.5, TargetUtilization: 0.7}
	prev := rc.At(0)
	for u := 0.05; u <= 1.0; u += 0.05 {
		cur := rc.At(u)
		assert.GreaterOrEqual(t, cur, prev, "utilization %.2f", u)
		prev = cur
	}
}

func TestRiskPremium(t *testing.T) {
	assert.Zero(t, RiskPremium(0, 1))
	assert.Zero(t, RiskPremium(-0.1, 1))
	assert.InDelta(t, 0.05/0.95, RiskPremium(0.05, 1), 1e-9)
	assert.InDelta(t, 0.5*0.05/0.95, RiskPremium(0.05, 0.5), 1e-9)
	// A certainty of loss is capped rather than exploding.
	assert.InDelta(t, 0.99/0.01, RiskPremium(1, 1), 1e-9)
}
