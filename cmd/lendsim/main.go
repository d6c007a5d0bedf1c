package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/lendsim/config"
	"github.com/alejandrodnm/lendsim/internal/adapters/notify"
	"github.com/alejandrodnm/lendsim/internal/adapters/oracle"
	"github.com/alejandrodnm/lendsim/internal/adapters/storage"
	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/alejandrodnm/lendsim/internal/ports"
	"github.com/alejandrodnm/lendsim/internal/sim"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	horizon := flag.Int("horizon", 0, "override simulation horizon (ticks)")
	seed := flag.Int64("seed", 0, "override random seed")
	table := flag.Bool("table", false, "print full rate-band table at the end")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	noStore := flag.Bool("no-store", false, "skip persisting the run to SQLite")
	oracleKind := flag.String("oracle", "logistic", "risk oracle: logistic|table|constant")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *horizon > 0 {
		cfg.Simulation.Horizon = *horizon
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("lendsim starting",
		"config", *configPath,
		"seed", cfg.Simulation.Seed,
		"horizon", cfg.Simulation.Horizon,
		"lenders", cfg.Population.Lenders,
		"borrowers", cfg.Population.Borrowers,
		"oracle", *oracleKind,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := notify.NewConsole(*table, cfg.Simulation.Horizon/10)
	run := sim.NewRun(buildSimConfig(cfg), buildOracle(*oracleKind), reporter)

	result, err := run.Execute(ctx)
	if err != nil {
		var ice *domain.InternalConsistencyError
		if errors.As(err, &ice) {
			slog.Error("simulation aborted on consistency violation", "err", err)
			os.Stderr.WriteString(ice.Dump)
		} else {
			slog.Error("simulation failed", "err", err)
		}
		os.Exit(1)
	}
	result.ConfigYAML = cfg.YAML()

	if err := reporter.Summary(ctx, result); err != nil {
		slog.Warn("failed to print summary", "err", err)
	}

	if !*noStore {
		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.SaveRun(ctx, result); err != nil {
			slog.Error("failed to persist run", "err", err, "run_id", result.RunID)
			os.Exit(1)
		}
		slog.Info("run persisted", "run_id", result.RunID, "dsn", cfg.Storage.DSN)
	}
}

// buildSimConfig maps the file configuration onto the engine's config.
func buildSimConfig(cfg *config.Config) sim.Config {
	tiers := make([]sim.TierSpec, 0, len(cfg.Population.Tiers))
	for _, t := range cfg.Population.Tiers {
		tiers = append(tiers, sim.TierSpec{
			Tier:          domain.Tier(t.Name),
			Share:         t.Share,
			CapitalMin:    t.CapitalMin,
			CapitalMax:    t.CapitalMax,
			CollateralMin: t.CollateralMin,
			CollateralMax: t.CollateralMax,
			IncomeMin:     t.IncomeMin,
			IncomeMax:     t.IncomeMax,
			ReputationMin: t.ReputationMin,
			ReputationMax: t.ReputationMax,
			RequestProb:   t.RequestProb,
			DiscountMin:   t.DiscountMin,
			DiscountMax:   t.DiscountMax,
		})
	}

	return sim.Config{
		Seed:               cfg.Simulation.Seed,
		Horizon:            cfg.Simulation.Horizon,
		Lenders:            cfg.Population.Lenders,
		Borrowers:          cfg.Population.Borrowers,
		LenderCapitalMin:   cfg.Population.LenderCapitalMin,
		LenderCapitalMax:   cfg.Population.LenderCapitalMax,
		LenderReserveRatio: cfg.Population.LenderReserveRatio,
		RequiredReturnMin:  cfg.Population.RequiredReturnMin,
		RequiredReturnMax:  cfg.Population.RequiredReturnMax,
		Tiers:              tiers,
		TermTicks:          cfg.Loan.TermTicks,
		Schedule:           domain.Schedule(cfg.Loan.Schedule),
		ClearingRule:       domain.ClearingRule(cfg.Market.ClearingRule),
		RateCurve: domain.RateCurve{
			Base:              cfg.Rates.Base,
			Slope1:            cfg.Rates.Slope1,
			Slope2:            cfg.Rates.Slope2,
			TargetUtilization: cfg.Rates.TargetUtilization,
		},
		Policy: sim.PolicyConfig{
			RateMin:              cfg.Rates.Min,
			RateMax:              cfg.Rates.Max,
			DemandIncomeMultiple: cfg.Policy.DemandIncomeMultiple,
			DemandNoise:          cfg.Policy.DemandNoise,
			CollateralFactor:     cfg.Policy.CollateralFactor,
			ReputationDamping:    cfg.Policy.ReputationDamping,
			HazardWeight:         cfg.Policy.HazardWeight,
			PremiumWeight:        cfg.Policy.PremiumWeight,
			RateJitter:           cfg.Policy.RateJitter,
			OfferChunk:           cfg.Policy.OfferChunk,
			AllowMultipleLoans:   cfg.Loan.AllowMultipleLoans,
		},
		VolatilityMin:   cfg.Volatility.Min,
		VolatilityMax:   cfg.Volatility.Max,
		DecisionWorkers: cfg.Simulation.DecisionWorkers,
	}
}

func buildOracle(kind string) ports.RiskOracle {
	switch kind {
	case "table":
		return oracle.NewReputationTable()
	case "constant":
		return oracle.Constant{P: 0.1}
	default:
		return oracle.NewLogistic()
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
