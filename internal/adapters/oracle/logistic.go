// Package oracle provides RiskOracle implementations. The core treats the
// oracle as a black box mapping a feature vector to a default probability;
// any of these can be swapped in without touching simulation logic.
package oracle

import (
	"math"
	"sort"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// Logistic scores default probability with a fixed logistic model over the
// engine's feature keys. Stands in for a trained model; weights are
// injectable for calibration experiments.
type Logistic struct {
	Intercept float64
	Weights   map[string]float64
}

// NewLogistic returns a Logistic with baseline weights: reputation and
// repayment history push the score down, past defaults push it up.
func NewLogistic() *Logistic {
	return &Logistic{
		Intercept: -1.0,
		Weights: map[string]float64{
			"reputation": -2.5,
			"defaults":   1.2,
			"repayments": -0.15,
		},
	}
}

func (l *Logistic) ScoreDefaultProbability(features domain.FeatureVector) float64 {
	// Sum in sorted key order. Map iteration order varies between calls
	// and float addition is not associative, so a ranged sum would give
	// the same vector slightly different scores across replays.
	keys := make([]string, 0, len(l.Weights))
	for k := range l.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	z := l.Intercept
	for _, k := range keys {
		z += l.Weights[k] * features[k]
	}
	return 1 / (1 + math.Exp(-z))
}

// Constant always returns the same probability. Useful in tests and as a
// null model.
type Constant struct {
	P float64
}

func (c Constant) ScoreDefaultProbability(_ domain.FeatureVector) float64 {
	if c.P < 0 {
		return 0
	}
	if c.P > 1 {
		return 1
	}
	return c.P
}

// ReputationTable is a lookup-table oracle: it buckets the reputation
// feature and returns a per-bucket probability, the shape historical loan
// datasets are usually summarized in.
type ReputationTable struct {
	// Buckets maps the inclusive lower bound of a reputation band to its
	// default probability. Bands are evaluated from highest bound down.
	bounds []float64
	probs  []float64
}

// NewReputationTable builds the default three-band table.
func NewReputationTable() *ReputationTable {
	return &ReputationTable{
		bounds: []float64{0.8, 0.5, 0.0},
		probs:  []float64{0.02, 0.08, 0.2},
	}
}

func (t *ReputationTable) ScoreDefaultProbability(features domain.FeatureVector) float64 {
	rep := features["reputation"]
	for i, lo := range t.bounds {
		if rep >= lo {
			return t.probs[i]
		}
	}
	return t.probs[len(t.probs)-1]
}
