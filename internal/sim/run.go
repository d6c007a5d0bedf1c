package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/alejandrodnm/lendsim/internal/ports"
	"github.com/google/uuid"
)

// Run owns a configured scheduler and assembles the run's result object:
// the per-tick metric series, the terminal loan book and the aggregate
// totals. The reporter, if present, sees every tick as it lands.
type Run struct {
	cfg       Config
	scheduler *Scheduler
	reporter  ports.Reporter
}

// NewRun wires a run. reporter may be nil.
func NewRun(cfg Config, oracle ports.RiskOracle, reporter ports.Reporter) *Run {
	return &Run{
		cfg:       cfg,
		scheduler: NewScheduler(cfg, oracle),
		reporter:  reporter,
	}
}

// Execute drives the scheduler over the configured horizon and returns the
// result. The context is checked at tick boundaries; a tick itself never
// blocks and is not interruptible.
func (r *Run) Execute(ctx context.Context) (*domain.RunResult, error) {
	result := &domain.RunResult{
		RunID:     uuid.New().String(),
		Seed:      r.cfg.Seed,
		Horizon:   r.cfg.Horizon,
		StartedAt: time.Now().UTC(),
	}

	if err := r.scheduler.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < r.cfg.Horizon; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := r.scheduler.Tick()
		if err != nil {
			return nil, err
		}
		if r.reporter != nil {
			r.reporter.Progress(ctx, m)
		}
	}
	if r.scheduler.state == StateRunning {
		r.scheduler.state = StateCompleted
	}

	result.FinishedAt = time.Now().UTC()
	result.Series = r.scheduler.Series()
	result.Contracts = r.scheduler.Book().Contracts()
	result.Totals = r.scheduler.Book().Totals()

	slog.Info("run: completed",
		"run_id", result.RunID,
		"ticks", len(result.Series),
		"contracts", result.Totals.ContractsOriginated,
		"default_rate", result.Totals.DefaultRate(),
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
	return result, nil
}

// Scheduler exposes the underlying scheduler, mainly for Reset between
// repeated executions.
func (r *Run) Scheduler() *Scheduler { return r.scheduler }
