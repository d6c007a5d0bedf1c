package domain

import "time"

// TickMetrics is one row of the run's time series, snapshotted after the
// settlement phase of every tick.
type TickMetrics struct {
	Tick         int
	PlatformRate float64
	Volatility   float64

	RequestsEmitted  int
	OffersEmitted    int
	RequestsMatched  int
	RequestsUnfilled int
	OffersUnfilled   int
	IntentsDropped   int // malformed intents rejected this tick

	OriginatedPrincipal float64
	AvgClearingRate     float64 // 0 when nothing matched

	ActiveContracts  int
	ActivePrincipal  float64
	RepaidThisTick   int
	DefaultsThisTick int

	CumInterestPaid float64
	CumLosses       float64
	CumRecovered    float64 // collateral liquidated into lender cash
	CumIncome       float64

	LenderCapital   float64
	BorrowerCapital float64
}

// RunTotals aggregates the loan book's lifetime counters over a whole run.
type RunTotals struct {
	ContractsOriginated int
	ContractsRepaid     int
	ContractsDefaulted  int
	PrincipalOriginated float64
	InterestPaid        float64
	Losses              float64
	Recovered           float64
	IncomeInflow        float64
	IntentsDropped      int
}

// DefaultRate is the share of resolved contracts that defaulted.
func (t RunTotals) DefaultRate() float64 {
	resolved := t.ContractsRepaid + t.ContractsDefaulted
	if resolved == 0 {
		return 0
	}
	return float64(t.ContractsDefaulted) / float64(resolved)
}

// RunResult is everything a completed simulation run exposes downstream:
// the metric time series, the full terminal loan book, and aggregates.
type RunResult struct {
	RunID      string
	Seed       int64
	Horizon    int
	StartedAt  time.Time
	FinishedAt time.Time
	Series     []TickMetrics
	Contracts  []LoanContract
	Totals     RunTotals
	ConfigYAML string // snapshot of the effective configuration
}

// FinalTick returns the last snapshot, or a zero value for an empty series.
func (r *RunResult) FinalTick() TickMetrics {
	if len(r.Series) == 0 {
		return TickMetrics{}
	}
	return r.Series[len(r.Series)-1]
}
