package ports

import (
	"context"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// Reporter presents run progress and the final summary to the user.
type Reporter interface {
	// Progress is called with the latest tick snapshot. Implementations
	// decide how often to actually print.
	Progress(ctx context.Context, m domain.TickMetrics)

	// Summary renders the completed run. In the console implementation,
	// prints a formatted table.
	Summary(ctx context.Context, result *domain.RunResult) error
}
