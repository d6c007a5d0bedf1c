package storage

// One row per run, batched tick_metrics and contracts inside a single
// transaction at run end. A simulation writes once and analysis tooling
// reads many times, so there is no incremental write path.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/lendsim/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    seed         INTEGER  NOT NULL,
    horizon      INTEGER  NOT NULL,
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME NOT NULL,
    config_yaml  TEXT     NOT NULL DEFAULT '',
    originated   INTEGER  NOT NULL DEFAULT 0,
    repaid       INTEGER  NOT NULL DEFAULT 0,
    defaulted    INTEGER  NOT NULL DEFAULT 0,
    principal    REAL     NOT NULL DEFAULT 0,
    interest     REAL     NOT NULL DEFAULT 0,
    losses       REAL     NOT NULL DEFAULT 0,
    recovered    REAL     NOT NULL DEFAULT 0,
    income       REAL     NOT NULL DEFAULT 0,
    dropped      INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tick_metrics (
    run_id            TEXT    NOT NULL REFERENCES runs(id),
    tick              INTEGER NOT NULL,
    platform_rate     REAL    NOT NULL,
    volatility        REAL    NOT NULL,
    requests_emitted  INTEGER NOT NULL,
    offers_emitted    INTEGER NOT NULL,
    requests_matched  INTEGER NOT NULL,
    requests_unfilled INTEGER NOT NULL,
    offers_unfilled   INTEGER NOT NULL,
    intents_dropped   INTEGER NOT NULL,
    originated        REAL    NOT NULL,
    avg_clearing_rate REAL    NOT NULL,
    active_contracts  INTEGER NOT NULL,
    active_principal  REAL    NOT NULL,
    repaid_tick       INTEGER NOT NULL,
    defaults_tick     INTEGER NOT NULL,
    cum_interest      REAL    NOT NULL,
    cum_losses        REAL    NOT NULL,
    cum_recovered     REAL    NOT NULL,
    cum_income        REAL    NOT NULL,
    lender_capital    REAL    NOT NULL,
    borrower_capital  REAL    NOT NULL,
    PRIMARY KEY (run_id, tick)
);

CREATE TABLE IF NOT EXISTS contracts (
    run_id           TEXT    NOT NULL REFERENCES runs(id),
    id               TEXT    NOT NULL,
    borrower_id      INTEGER NOT NULL,
    lender_id        INTEGER NOT NULL,
    principal        REAL    NOT NULL,
    rate             REAL    NOT NULL,
    origination_tick INTEGER NOT NULL,
    term_ticks       INTEGER NOT NULL,
    state            TEXT    NOT NULL,
    outstanding      REAL    NOT NULL,
    principal_repaid REAL    NOT NULL,
    interest_paid    REAL    NOT NULL,
    resolved_tick    INTEGER NOT NULL,
    PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_ticks_run     ON tick_metrics(run_id, tick);
CREATE INDEX IF NOT EXISTS idx_contracts_run ON contracts(run_id, state);
`

// SQLiteStore implements ports.ResultStore on SQLite (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and
// applies the schema. ":memory:" works for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun persists the run header, its series and its terminal loan book
// in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, result *domain.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, horizon, started_at, finished_at, config_yaml,
		                  originated, repaid, defaulted, principal, interest, losses, recovered, income, dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Seed, result.Horizon, result.StartedAt, result.FinishedAt,
		result.ConfigYAML,
		result.Totals.ContractsOriginated, result.Totals.ContractsRepaid,
		result.Totals.ContractsDefaulted, result.Totals.PrincipalOriginated,
		result.Totals.InterestPaid, result.Totals.Losses, result.Totals.Recovered,
		result.Totals.IncomeInflow, result.Totals.IntentsDropped,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	tickStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tick_metrics (run_id, tick, platform_rate, volatility,
			requests_emitted, offers_emitted, requests_matched, requests_unfilled,
			offers_unfilled, intents_dropped, originated, avg_clearing_rate,
			active_contracts, active_principal, repaid_tick, defaults_tick,
			cum_interest, cum_losses, cum_recovered, cum_income, lender_capital, borrower_capital)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare ticks: %w", err)
	}
	defer tickStmt.Close()

	for _, m := range result.Series {
		if _, err := tickStmt.ExecContext(ctx, result.RunID, m.Tick, m.PlatformRate, m.Volatility,
			m.RequestsEmitted, m.OffersEmitted, m.RequestsMatched, m.RequestsUnfilled,
			m.OffersUnfilled, m.IntentsDropped, m.OriginatedPrincipal, m.AvgClearingRate,
			m.ActiveContracts, m.ActivePrincipal, m.RepaidThisTick, m.DefaultsThisTick,
			m.CumInterestPaid, m.CumLosses, m.CumRecovered, m.CumIncome, m.LenderCapital, m.BorrowerCapital,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert tick %d: %w", m.Tick, err)
		}
	}

	contractStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contracts (run_id, id, borrower_id, lender_id, principal, rate,
			origination_tick, term_ticks, state, outstanding, principal_repaid,
			interest_paid, resolved_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare contracts: %w", err)
	}
	defer contractStmt.Close()

	for _, c := range result.Contracts {
		if _, err := contractStmt.ExecContext(ctx, result.RunID, c.ID, c.BorrowerID, c.LenderID,
			c.Principal, c.Rate, c.OriginationTick, c.TermTicks, string(c.State),
			c.Outstanding, c.PrincipalRepaid, c.InterestPaid, c.ResolvedTick,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert contract %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetSeries returns a stored run's metric series ordered by tick.
func (s *SQLiteStore) GetSeries(ctx context.Context, runID string) ([]domain.TickMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, platform_rate, volatility, requests_emitted, offers_emitted,
		       requests_matched, requests_unfilled, offers_unfilled, intents_dropped,
		       originated, avg_clearing_rate, active_contracts, active_principal,
		       repaid_tick, defaults_tick, cum_interest, cum_losses, cum_recovered,
		       cum_income, lender_capital, borrower_capital
		FROM tick_metrics WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetSeries: query: %w", err)
	}
	defer rows.Close()

	var series []domain.TickMetrics
	for rows.Next() {
		var m domain.TickMetrics
		if err := rows.Scan(&m.Tick, &m.PlatformRate, &m.Volatility, &m.RequestsEmitted,
			&m.OffersEmitted, &m.RequestsMatched, &m.RequestsUnfilled, &m.OffersUnfilled,
			&m.IntentsDropped, &m.OriginatedPrincipal, &m.AvgClearingRate,
			&m.ActiveContracts, &m.ActivePrincipal, &m.RepaidThisTick, &m.DefaultsThisTick,
			&m.CumInterestPaid, &m.CumLosses, &m.CumRecovered, &m.CumIncome, &m.LenderCapital, &m.BorrowerCapital,
		); err != nil {
			return nil, fmt.Errorf("storage.GetSeries: scan: %w", err)
		}
		series = append(series, m)
	}
	return series, rows.Err()
}

// GetContracts returns a stored run's terminal loan book in origination
// order.
func (s *SQLiteStore) GetContracts(ctx context.Context, runID string) ([]domain.LoanContract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, borrower_id, lender_id, principal, rate, origination_tick,
		       term_ticks, state, outstanding, principal_repaid, interest_paid, resolved_tick
		FROM contracts WHERE run_id = ? ORDER BY origination_tick, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetContracts: query: %w", err)
	}
	defer rows.Close()

	var contracts []domain.LoanContract
	for rows.Next() {
		var c domain.LoanContract
		var state string
		if err := rows.Scan(&c.ID, &c.BorrowerID, &c.LenderID, &c.Principal, &c.Rate,
			&c.OriginationTick, &c.TermTicks, &state, &c.Outstanding,
			&c.PrincipalRepaid, &c.InterestPaid, &c.ResolvedTick,
		); err != nil {
			return nil, fmt.Errorf("storage.GetContracts: scan: %w", err)
		}
		c.State = domain.ContractState(state)
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
