package sim

import (
	"context"
	"testing"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReporter captures progress callbacks for assertions.
type recordingReporter struct {
	ticks []domain.TickMetrics
}

func (r *recordingReporter) Progress(_ context.Context, m domain.TickMetrics) {
	r.ticks = append(r.ticks, m)
}

func (r *recordingReporter) Summary(context.Context, *domain.RunResult) error { return nil }

func TestRun_ExecuteProducesResult(t *testing.T) {
	rep := &recordingReporter{}
	run := NewRun(testSchedulerConfig(17), fixedOracle{p: 0.02}, rep)

	result, err := run.Execute(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, int64(17), result.Seed)
	assert.Equal(t, 20, result.Horizon)
	assert.Len(t, result.Series, 20)
	assert.Len(t, rep.ticks, 20)
	assert.Equal(t, result.Series, rep.ticks)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
	assert.Equal(t, StateCompleted, run.Scheduler().CurrentState())

	// Every contract in the result belongs to a known agent pair.
	cfg := testSchedulerConfig(17)
	for _, c := range result.Contracts {
		assert.Less(t, c.LenderID, cfg.Lenders)
		assert.GreaterOrEqual(t, c.BorrowerID, cfg.Lenders)
		assert.Less(t, c.BorrowerID, cfg.Lenders+cfg.Borrowers)
	}
}

func TestRun_DeterministicAcrossExecutions(t *testing.T) {
	a, err := NewRun(testSchedulerConfig(42), fixedOracle{p: 0.02}, nil).Execute(context.Background())
	require.NoError(t, err)
	b, err := NewRun(testSchedulerConfig(42), fixedOracle{p: 0.02}, nil).Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Series, b.Series)
	assert.Equal(t, a.Totals, b.Totals)
	// Contract ids are fresh uuids per run; everything else must agree.
	require.Len(t, b.Contracts, len(a.Contracts))
	for i := range a.Contracts {
		ca, cb := a.Contracts[i], b.Contracts[i]
		ca.ID, cb.ID = "", ""
		assert.Equal(t, ca, cb)
	}
}

func TestRun_CancelledContextStopsAtTickBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRun(testSchedulerConfig(3), fixedOracle{p: 0.02}, nil).Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_TotalsMatchSeriesTail(t *testing.T) {
	result, err := NewRun(testSchedulerConfig(8), fixedOracle{p: 0.02}, nil).Execute(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, result.Series)
	last := result.FinalTick()
	assert.InDelta(t, result.Totals.InterestPaid, last.CumInterestPaid, 1e-9)
	assert.InDelta(t, result.Totals.Losses, last.CumLosses, 1e-9)
	assert.InDelta(t, result.Totals.Recovered, last.CumRecovered, 1e-9)
	assert.InDelta(t, result.Totals.IncomeInflow, last.CumIncome, 1e-9)
}
