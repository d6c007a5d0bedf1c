package ports

import (
	"context"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// ResultStore persists completed runs for downstream analysis.
type ResultStore interface {
	// SaveRun persists the run header, its metric series and the terminal
	// loan book in one transaction.
	SaveRun(ctx context.Context, result *domain.RunResult) error

	// GetSeries returns the metric time series of a stored run.
	GetSeries(ctx context.Context, runID string) ([]domain.TickMetrics, error)

	// GetContracts returns the terminal loan book of a stored run.
	GetContracts(ctx context.Context, runID string) ([]domain.LoanContract, error)

	// Close closes the underlying database cleanly.
	Close() error
}
