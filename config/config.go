package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full simulation configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Population PopulationConfig `yaml:"population"`
	Loan       LoanConfig       `yaml:"loan"`
	Market     MarketConfig     `yaml:"market"`
	Rates      RatesConfig      `yaml:"rates"`
	Policy     PolicyConfig     `yaml:"policy"`
	Volatility VolatilityConfig `yaml:"volatility"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// SimulationConfig controls the run itself.
type SimulationConfig struct {
	Horizon int   `yaml:"horizon"` // tick count
	Seed    int64 `yaml:"seed"`
	// DecisionWorkers parallelizes the agent decision phase; 0 or 1 keeps
	// it sequential, -1 uses one worker per CPU.
	DecisionWorkers int `yaml:"decision_workers"`
}

// PopulationConfig sizes and seeds the two agent populations.
type PopulationConfig struct {
	Lenders            int          `yaml:"lenders"`
	Borrowers          int          `yaml:"borrowers"`
	LenderCapitalMin   float64      `yaml:"lender_capital_min"`
	LenderCapitalMax   float64      `yaml:"lender_capital_max"`
	LenderReserveRatio float64      `yaml:"lender_reserve_ratio"`
	RequiredReturnMin  float64      `yaml:"required_return_min"`
	RequiredReturnMax  float64      `yaml:"required_return_max"`
	Tiers              []TierConfig `yaml:"tiers"`
}

// TierConfig is one borrower credit tier.
type TierConfig struct {
	Name          string  `yaml:"name"`
	Share         float64 `yaml:"share"`
	CapitalMin    float64 `yaml:"capital_min"`
	CapitalMax    float64 `yaml:"capital_max"`
	CollateralMin float64 `yaml:"collateral_min"`
	CollateralMax float64 `yaml:"collateral_max"`
	IncomeMin     float64 `yaml:"income_min"`
	IncomeMax     float64 `yaml:"income_max"`
	ReputationMin float64 `yaml:"reputation_min"`
	ReputationMax float64 `yaml:"reputation_max"`
	RequestProb   float64 `yaml:"request_prob"`
	DiscountMin   float64 `yaml:"discount_min"`
	DiscountMax   float64 `yaml:"discount_max"`
}

// LoanConfig shapes originated contracts.
type LoanConfig struct {
	TermTicks          int    `yaml:"term_ticks"`
	Schedule           string `yaml:"schedule"` // amortizing | interest_only
	AllowMultipleLoans bool   `yaml:"allow_multiple_loans"`
}

// MarketConfig controls the clearing mechanism.
type MarketConfig struct {
	ClearingRule string `yaml:"clearing_rule"` // midpoint | request-side | offer-side
}

// RatesConfig is the platform rate curve plus the hard rate bounds every
// intent is clamped to.
type RatesConfig struct {
	Base              float64 `yaml:"base"`
	Slope1            float64 `yaml:"slope1"`
	Slope2            float64 `yaml:"slope2"`
	TargetUtilization float64 `yaml:"target_utilization"`
	Min               float64 `yaml:"min"`
	Max               float64 `yaml:"max"`
}

// PolicyConfig tunes the baseline decision policies.
type PolicyConfig struct {
	DemandIncomeMultiple float64 `yaml:"demand_income_multiple"`
	DemandNoise          float64 `yaml:"demand_noise"`
	CollateralFactor     float64 `yaml:"collateral_factor"`
	ReputationDamping    float64 `yaml:"reputation_damping"`
	HazardWeight         float64 `yaml:"hazard_weight"`
	PremiumWeight        float64 `yaml:"premium_weight"`
	RateJitter           float64 `yaml:"rate_jitter"`
	OfferChunk           float64 `yaml:"offer_chunk"`
}

// VolatilityConfig bounds the per-tick repayment shock draw.
type VolatilityConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// StorageConfig controls where run results are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present, applies env
// overrides and defaults, and validates. Env values win over YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// YAML renders the effective configuration, stored alongside run results
// so an experiment can be replayed exactly.
func (c *Config) YAML() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(out)
}

// Validate fails fast on anything a run could not start with.
func (c *Config) Validate() error {
	if c.Simulation.Horizon <= 0 {
		return domain.NewConfigurationError("simulation.horizon", "must be positive, got %d", c.Simulation.Horizon)
	}
	if c.Population.Lenders <= 0 || c.Population.Borrowers <= 0 {
		return domain.NewConfigurationError("population", "lenders (%d) and borrowers (%d) must be positive",
			c.Population.Lenders, c.Population.Borrowers)
	}
	if c.Population.LenderCapitalMin < 0 || c.Population.LenderCapitalMax < c.Population.LenderCapitalMin {
		return domain.NewConfigurationError("population.lender_capital", "invalid range [%.2f, %.2f]",
			c.Population.LenderCapitalMin, c.Population.LenderCapitalMax)
	}
	if c.Population.LenderReserveRatio < 0 || c.Population.LenderReserveRatio >= 1 {
		return domain.NewConfigurationError("population.lender_reserve_ratio", "must be in [0,1), got %.2f",
			c.Population.LenderReserveRatio)
	}
	if len(c.Population.Tiers) == 0 {
		return domain.NewConfigurationError("population.tiers", "at least one tier required")
	}
	var shareSum float64
	for _, t := range c.Population.Tiers {
		if t.Share <= 0 {
			return domain.NewConfigurationError("population.tiers", "tier %q share must be positive", t.Name)
		}
		if t.CapitalMin < 0 || t.CapitalMax < t.CapitalMin {
			return domain.NewConfigurationError("population.tiers", "tier %q invalid capital range", t.Name)
		}
		if t.CollateralMin < 0 || t.CollateralMax < t.CollateralMin {
			return domain.NewConfigurationError("population.tiers", "tier %q invalid collateral range", t.Name)
		}
		if t.RequestProb < 0 || t.RequestProb > 1 {
			return domain.NewConfigurationError("population.tiers", "tier %q request_prob outside [0,1]", t.Name)
		}
		shareSum += t.Share
	}
	if shareSum < 0.999 || shareSum > 1.001 {
		return domain.NewConfigurationError("population.tiers", "shares must sum to 1, got %.3f", shareSum)
	}
	if c.Loan.TermTicks <= 0 {
		return domain.NewConfigurationError("loan.term_ticks", "must be positive, got %d", c.Loan.TermTicks)
	}
	switch domain.Schedule(c.Loan.Schedule) {
	case domain.ScheduleAmortizing, domain.ScheduleInterestOnly:
	default:
		return domain.NewConfigurationError("loan.schedule", "unknown schedule %q", c.Loan.Schedule)
	}
	switch domain.ClearingRule(c.Market.ClearingRule) {
	case domain.ClearMidpoint, domain.ClearRequestSide, domain.ClearOfferSide:
	default:
		return domain.NewConfigurationError("market.clearing_rule", "unknown rule %q", c.Market.ClearingRule)
	}
	if c.Rates.Min <= 0 || c.Rates.Max >= 1 || c.Rates.Min >= c.Rates.Max {
		return domain.NewConfigurationError("rates", "bounds must satisfy 0 < min < max < 1, got [%.4f, %.4f]",
			c.Rates.Min, c.Rates.Max)
	}
	if c.Rates.TargetUtilization <= 0 || c.Rates.TargetUtilization >= 1 {
		return domain.NewConfigurationError("rates.target_utilization", "must be in (0,1), got %.2f",
			c.Rates.TargetUtilization)
	}
	if c.Volatility.Min < 0 || c.Volatility.Max < c.Volatility.Min {
		return domain.NewConfigurationError("volatility", "invalid range [%.3f, %.3f]",
			c.Volatility.Min, c.Volatility.Max)
	}
	return nil
}

// applyEnvOverrides overwrites values from the environment when present.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LENDSIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
}

// setDefaults fills anything the YAML left unset.
func setDefaults(cfg *Config) {
	if cfg.Simulation.Horizon <= 0 {
		cfg.Simulation.Horizon = 500
	}
	if cfg.Population.Lenders <= 0 {
		cfg.Population.Lenders = 20
	}
	if cfg.Population.Borrowers <= 0 {
		cfg.Population.Borrowers = 100
	}
	if cfg.Population.LenderCapitalMax <= 0 {
		cfg.Population.LenderCapitalMin = 50_000
		cfg.Population.LenderCapitalMax = 250_000
	}
	if cfg.Population.RequiredReturnMax <= 0 {
		cfg.Population.RequiredReturnMin = 0.005
		cfg.Population.RequiredReturnMax = 0.02
	}
	if len(cfg.Population.Tiers) == 0 {
		cfg.Population.Tiers = DefaultTiers()
	}
	if cfg.Loan.TermTicks <= 0 {
		cfg.Loan.TermTicks = 12
	}
	if cfg.Loan.Schedule == "" {
		cfg.Loan.Schedule = string(domain.ScheduleAmortizing)
	}
	if cfg.Market.ClearingRule == "" {
		cfg.Market.ClearingRule = string(domain.ClearMidpoint)
	}
	if cfg.Rates.Base <= 0 {
		cfg.Rates.Base = 0.02
	}
	if cfg.Rates.Slope1 <= 0 {
		cfg.Rates.Slope1 = 0.1
	}
	if cfg.Rates.Slope2 <= 0 {
		cfg.Rates.Slope2 = 0.3
	}
	if cfg.Rates.TargetUtilization <= 0 {
		cfg.Rates.TargetUtilization = 0.8
	}
	if cfg.Rates.Min <= 0 {
		cfg.Rates.Min = 0.001
	}
	if cfg.Rates.Max <= 0 {
		cfg.Rates.Max = 0.5
	}
	if cfg.Policy.DemandIncomeMultiple <= 0 {
		cfg.Policy.DemandIncomeMultiple = 10
	}
	if cfg.Policy.DemandNoise <= 0 {
		cfg.Policy.DemandNoise = 0.25
	}
	if cfg.Policy.CollateralFactor <= 0 {
		cfg.Policy.CollateralFactor = 0.5
	}
	if cfg.Policy.ReputationDamping <= 0 {
		cfg.Policy.ReputationDamping = 0.5
	}
	if cfg.Policy.HazardWeight <= 0 {
		cfg.Policy.HazardWeight = 0.5
	}
	if cfg.Policy.PremiumWeight <= 0 {
		cfg.Policy.PremiumWeight = 0.5
	}
	if cfg.Policy.RateJitter <= 0 {
		cfg.Policy.RateJitter = 0.005
	}
	if cfg.Policy.OfferChunk <= 0 {
		cfg.Policy.OfferChunk = 5_000
	}
	if cfg.Volatility.Max <= 0 {
		cfg.Volatility.Min = 0.05
		cfg.Volatility.Max = 0.2
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "lendsim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// DefaultTiers mirrors the credit distribution of the calibration dataset:
// half prime, thirty percent standard, the rest subprime.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{
			Name: "prime", Share: 0.5,
			CapitalMin: 10_000, CapitalMax: 20_000,
			CollateralMin: 20_000, CollateralMax: 40_000,
			IncomeMin: 500, IncomeMax: 1_000,
			ReputationMin: 0.8, ReputationMax: 1.0,
			RequestProb: 0.1,
			DiscountMin: 0.2, DiscountMax: 0.6,
		},
		{
			Name: "standard", Share: 0.3,
			CapitalMin: 5_000, CapitalMax: 15_000,
			CollateralMin: 8_000, CollateralMax: 20_000,
			IncomeMin: 300, IncomeMax: 700,
			ReputationMin: 0.5, ReputationMax: 0.8,
			RequestProb: 0.15,
			DiscountMin: 0.4, DiscountMax: 1.0,
		},
		{
			Name: "subprime", Share: 0.2,
			CapitalMin: 1_000, CapitalMax: 8_000,
			CollateralMin: 2_000, CollateralMax: 8_000,
			IncomeMin: 100, IncomeMax: 500,
			ReputationMin: 0.2, ReputationMax: 0.5,
			RequestProb: 0.25,
			DiscountMin: 0.8, DiscountMax: 1.6,
		},
	}
}
