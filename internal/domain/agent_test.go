package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgent_ReputationAsymmetry(t *testing.T) {
	a := &Agent{ID: 1, Role: RoleBorrower, Reputation: 0.5}

	a.ApplySettlement(SettlementEvent{Repaid: true})
	gained := a.Reputation - 0.5
	assert.InDelta(t, 0.05*(1-0.5*0.5), gained, 1e-9)
	assert.Equal(t, 1, a.Repayments)

	before := a.Reputation
	a.ApplySettlement(SettlementEvent{Defaulted: true})
	lost := before - a.Reputation
	assert.Equal(t, 1, a.Defaults)
	// One default erases far more than one repayment earned.
	assert.Greater(t, lost, gained)
}

func TestAgent_ReputationClamped(t *testing.T) {
	low := &Agent{Reputation: 0.05}
	low.ApplySettlement(SettlementEvent{Defaulted: true})
	assert.GreaterOrEqual(t, low.Reputation, 0.0)

	high := &Agent{Reputation: 0.999}
	for i := 0; i < 100; i++ {
		high.ApplySettlement(SettlementEvent{Repaid: true})
	}
	assert.LessOrEqual(t, high.Reputation, 1.0)
}

func TestAgent_ReputationGainShrinksNearOne(t *testing.T) {
	fresh := &Agent{Reputation: 0.1}
	seasoned := &Agent{Reputation: 0.9}
	fresh.ApplySettlement(SettlementEvent{Repaid: true})
	seasoned.ApplySettlement(SettlementEvent{Repaid: true})

	assert.Greater(t, fresh.Reputation-0.1, seasoned.Reputation-0.9)
}

func TestAgent_FeaturesCoverOracleContract(t *testing.T) {
	a := &Agent{Capital: 300, Collateral: 1200, IncomeFlow: 75, Reputation: 0.4, Defaults: 2, Repayments: 9}
	f := a.Features()

	assert.InDelta(t, 300.0, f["capital"], 1e-9)
	assert.InDelta(t, 1200.0, f["collateral"], 1e-9)
	assert.InDelta(t, 75.0, f["income"], 1e-9)
	assert.InDelta(t, 0.4, f["reputation"], 1e-9)
	assert.InDelta(t, 2.0, f["defaults"], 1e-9)
	assert.InDelta(t, 9.0, f["repayments"], 1e-9)
}

func TestAgent_CreditDebit(t *testing.T) {
	a := &Agent{Capital: 100}
	a.Credit(50)
	a.Debit(30)
	assert.InDelta(t, 120.0, a.Capital, 1e-9)
}
