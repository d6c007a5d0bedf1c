package domain

// ClearingRule selects how the clearing rate of a matched pair is set.
type ClearingRule string

const (
	// ClearMidpoint splits the surplus evenly between the two sides.
	ClearMidpoint ClearingRule = "midpoint"
	// ClearRequestSide gives the borrower's bound, favoring the lender.
	ClearRequestSide ClearingRule = "request-side"
	// ClearOfferSide gives the lender's bound, favoring the borrower.
	ClearOfferSide ClearingRule = "offer-side"
)

// ClearingRate computes the contract rate for a compatible pair
// (maxRate >= minRate, checked by the caller).
func ClearingRate(rule ClearingRule, maxRate, minRate float64) float64 {
	switch rule {
	case ClearRequestSide:
		return maxRate
	case ClearOfferSide:
		return minRate
	default:
		return (maxRate + minRate) / 2
	}
}

// RateCurve is the platform reference rate as a two-slope function of
// liquidity utilization: below the target utilization the rate climbs
// gently (Slope1), above it steeply (Slope2). The kink discourages draining
// the pool, the same mechanism DeFi money markets use.
type RateCurve struct {
	Base              float64
	Slope1            float64
	Slope2            float64
	TargetUtilization float64
}

// At returns the reference rate at utilization u (clamped to [0,1]).
func (rc RateCurve) At(u float64) float64 {
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	if u <= rc.TargetUtilization {
		return rc.Base + rc.Slope1*u
	}
	return rc.Base + rc.Slope1*rc.TargetUtilization + rc.Slope2*(u-rc.TargetUtilization)
}

// RiskPremium converts a default-probability estimate into the rate spread
// a lender demands for carrying it. The actuarially fair premium for a
// one-shot loss of the full balance is pd/(1-pd); weight scales appetite.
func RiskPremium(pd, weight float64) float64 {
	if pd <= 0 {
		return 0
	}
	if pd >= 1 {
		pd = 0.99
	}
	return weight * pd / (1 - pd)
}
