package ports

import "github.com/alejandrodnm/lendsim/internal/domain"

// RiskOracle estimates a borrower's default probability from a feature
// snapshot. It is a pure function from the core's point of view: no state,
// no error path, swappable (stub, lookup table, trained model) without
// touching simulation logic.
type RiskOracle interface {
	// ScoreDefaultProbability returns a probability in [0,1].
	ScoreDefaultProbability(features domain.FeatureVector) float64
}
