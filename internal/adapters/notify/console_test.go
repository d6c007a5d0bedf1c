package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/lendsim/internal/adapters/notify"
	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryResult() *domain.RunResult {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &domain.RunResult{
		RunID:      "run-xyz",
		Seed:       42,
		Horizon:    2,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Series: []domain.TickMetrics{
			{Tick: 1, PlatformRate: 0.03, ActiveContracts: 2, ActivePrincipal: 250, RequestsMatched: 2, RequestsUnfilled: 1},
			{Tick: 2, PlatformRate: 0.031, ActiveContracts: 1, ActivePrincipal: 100, LenderCapital: 9900, BorrowerCapital: 1200, CumLosses: 150},
		},
		Contracts: []domain.LoanContract{
			{ID: "c-1", Rate: 0.052, Principal: 150, State: domain.StateRepaid},
			{ID: "c-2", Rate: 0.058, Principal: 100, State: domain.StateActive},
			{ID: "c-3", Rate: 0.121, Principal: 150, State: domain.StateDefaulted},
		},
		Totals: domain.RunTotals{
			ContractsOriginated: 3,
			ContractsRepaid:     1,
			ContractsDefaulted:  1,
			PrincipalOriginated: 400,
			InterestPaid:        9.5,
			Losses:              150,
			Recovered:           60,
			IncomeInflow:        300,
		},
	}
}

func TestConsole_ProgressLine(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.Progress(context.Background(), domain.TickMetrics{
		Tick: 7, PlatformRate: 0.032, ActiveContracts: 4, ActivePrincipal: 620,
		RequestsMatched: 3, RequestsUnfilled: 2, DefaultsThisTick: 1, CumLosses: 80,
	})

	out := buf.String()
	assert.Contains(t, out, "t=7")
	assert.Contains(t, out, "rate=0.0320")
	assert.Contains(t, out, "active=4")
	assert.Contains(t, out, "matched=3/5")
	assert.Contains(t, out, "defaults=1")
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, c.Summary(context.Background(), summaryResult()))

	out := buf.String()
	assert.Contains(t, out, "run run-xyz: 2 ticks, seed 42")
	assert.Contains(t, out, "3 originated ($400.00)")
	assert.Contains(t, out, "1 repaid, 1 defaulted (50.0% default rate)")
	assert.Contains(t, out, "interest $9.50")
	assert.Contains(t, out, "losses $150.00")
	assert.Contains(t, out, "recovered $60.00")
	assert.Contains(t, out, "lenders $9900.00")
	// No table without the flag.
	assert.NotContains(t, out, "Rate band")
}

func TestConsole_SummaryTable(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.Summary(context.Background(), summaryResult()))

	out := buf.String()
	// Rates 0.052 and 0.058 share the 5-6% band; 0.121 lands in 12-13%.
	assert.Contains(t, out, "5-6%")
	assert.Contains(t, out, "12-13%")
	assert.Contains(t, out, "$250")
}
