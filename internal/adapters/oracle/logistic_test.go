package oracle_test

import (
	"testing"

	"github.com/alejandrodnm/lendsim/internal/adapters/oracle"
	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLogistic_ScoreBounds(t *testing.T) {
	o := oracle.NewLogistic()

	clean := domain.FeatureVector{"reputation": 1, "defaults": 0, "repayments": 20}
	risky := domain.FeatureVector{"reputation": 0, "defaults": 5, "repayments": 0}

	pClean := o.ScoreDefaultProbability(clean)
	pRisky := o.ScoreDefaultProbability(risky)

	assert.Greater(t, pClean, 0.0)
	assert.Less(t, pClean, 1.0)
	assert.Greater(t, pRisky, pClean)
}

func TestLogistic_MonotonicInReputation(t *testing.T) {
	o := oracle.NewLogistic()
	prev := 1.1
	for rep := 0.0; rep <= 1.0; rep += 0.1 {
		p := o.ScoreDefaultProbability(domain.FeatureVector{"reputation": rep})
		assert.Less(t, p, prev, "reputation %.1f", rep)
		prev = p
	}
}

func TestLogistic_RepeatedScoresAreIdentical(t *testing.T) {
	o := oracle.NewLogistic()
	vecs := []domain.FeatureVector{
		{"reputation": 0.437, "defaults": 2, "repayments": 13, "capital": 812.55, "income": 74.3},
		{"reputation": 0.9101, "defaults": 0, "repayments": 41},
		{"reputation": 0.0137, "defaults": 7, "repayments": 1},
	}
	for _, vec := range vecs {
		first := o.ScoreDefaultProbability(vec)
		for i := 0; i < 500; i++ {
			assert.Equal(t, first, o.ScoreDefaultProbability(vec))
		}
	}
}

func TestLogistic_MissingFeaturesScoreAsZero(t *testing.T) {
	o := oracle.NewLogistic()
	// An empty vector reduces to the intercept: 1/(1+e) at intercept -1.
	assert.InDelta(t, 0.2689, o.ScoreDefaultProbability(domain.FeatureVector{}), 1e-3)
}

func TestConstant_Clamps(t *testing.T) {
	assert.Equal(t, 0.3, oracle.Constant{P: 0.3}.ScoreDefaultProbability(nil))
	assert.Equal(t, 0.0, oracle.Constant{P: -1}.ScoreDefaultProbability(nil))
	assert.Equal(t, 1.0, oracle.Constant{P: 2}.ScoreDefaultProbability(nil))
}

func TestReputationTable_Bands(t *testing.T) {
	o := oracle.NewReputationTable()

	assert.InDelta(t, 0.02, o.ScoreDefaultProbability(domain.FeatureVector{"reputation": 0.9}), 1e-9)
	assert.InDelta(t, 0.02, o.ScoreDefaultProbability(domain.FeatureVector{"reputation": 0.8}), 1e-9)
	assert.InDelta(t, 0.08, o.ScoreDefaultProbability(domain.FeatureVector{"reputation": 0.6}), 1e-9)
	assert.InDelta(t, 0.2, o.ScoreDefaultProbability(domain.FeatureVector{"reputation": 0.1}), 1e-9)
	assert.InDelta(t, 0.2, o.ScoreDefaultProbability(domain.FeatureVector{"reputation": 0.0}), 1e-9)
}
