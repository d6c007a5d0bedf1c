package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implements ports.Reporter. It prints a compact progress line
// every progressEvery ticks and, at completion, a formatted summary of the
// run.
type Console struct {
	out           io.Writer
	table         bool
	progressEvery int
}

// NewConsole creates a reporter that writes to stdout. With table enabled,
// the summary includes the per-rate-band breakdown of the loan book.
func NewConsole(table bool, progressEvery int) *Console {
	if progressEvery <= 0 {
		progressEvery = 50
	}
	return &Console{out: os.Stdout, table: table, progressEvery: progressEvery}
}

// NewConsoleWriter creates a reporter for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, progressEvery: 1}
}

// Progress prints one compact line per progressEvery ticks.
func (c *Console) Progress(_ context.Context, m domain.TickMetrics) {
	if m.Tick%c.progressEvery != 0 {
		return
	}
	fmt.Fprintf(c.out, "[%s] t=%d rate=%.4f active=%d ($%.0f) matched=%d/%d defaults=%d losses=$%.0f\n",
		time.Now().Format("15:04:05"), m.Tick, m.PlatformRate,
		m.ActiveContracts, m.ActivePrincipal,
		m.RequestsMatched, m.RequestsMatched+m.RequestsUnfilled,
		m.DefaultsThisTick, m.CumLosses)
}

// Summary renders the terminal state of the run.
func (c *Console) Summary(_ context.Context, result *domain.RunResult) error {
	final := result.FinalTick()
	t := result.Totals

	fmt.Fprintf(c.out, "\nrun %s: %d ticks, seed %d, %s\n",
		result.RunID, len(result.Series), result.Seed,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(c.out, "contracts: %d originated ($%.2f), %d repaid, %d defaulted (%.1f%% default rate)\n",
		t.ContractsOriginated, t.PrincipalOriginated, t.ContractsRepaid,
		t.ContractsDefaulted, 100*t.DefaultRate())
	fmt.Fprintf(c.out, "flows: interest $%.2f | losses $%.2f | recovered $%.2f | income $%.2f | dropped intents %d\n",
		t.InterestPaid, t.Losses, t.Recovered, t.IncomeInflow, t.IntentsDropped)
	fmt.Fprintf(c.out, "capital: lenders $%.2f, borrowers $%.2f, still lent out $%.2f\n",
		final.LenderCapital, final.BorrowerCapital, final.ActivePrincipal)

	if c.table {
		c.printContractTable(result)
	}
	return nil
}

// printContractTable aggregates the terminal loan book by clearing-rate
// band, the view rate-spread analysis starts from.
func (c *Console) printContractTable(result *domain.RunResult) {
	type band struct {
		count     int
		principal float64
		defaults  int
		repaid    int
		rateSum   float64
	}
	bands := make(map[int]*band)
	for _, ct := range result.Contracts {
		key := int(ct.Rate * 100) // 1% bands
		b := bands[key]
		if b == nil {
			b = &band{}
			bands[key] = b
		}
		b.count++
		b.principal += ct.Principal
		b.rateSum += ct.Rate
		switch ct.State {
		case domain.StateDefaulted:
			b.defaults++
		case domain.StateRepaid:
			b.repaid++
		}
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Rate band", "Loans", "Principal", "Repaid", "Defaulted", "Default %")

	for key := 0; key <= 100; key++ {
		b, ok := bands[key]
		if !ok {
			continue
		}
		resolved := b.repaid + b.defaults
		defaultPct := 0.0
		if resolved > 0 {
			defaultPct = 100 * float64(b.defaults) / float64(resolved)
		}
		tbl.Append(
			fmt.Sprintf("%d-%d%%", key, key+1),
			fmt.Sprintf("%d", b.count),
			fmt.Sprintf("$%.0f", b.principal),
			fmt.Sprintf("%d", b.repaid),
			fmt.Sprintf("%d", b.defaults),
			fmt.Sprintf("%.1f%%", defaultPct),
		)
	}
	tbl.Render()
}
