package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/lendsim/config"
	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const minimalYAML = `
simulation:
  horizon: 100
  seed: 42
`

func TestLoad_DefaultsFillEverything(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Simulation.Horizon)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 20, cfg.Population.Lenders)
	assert.Equal(t, 100, cfg.Population.Borrowers)
	assert.Len(t, cfg.Population.Tiers, 3)
	assert.Equal(t, "amortizing", cfg.Loan.Schedule)
	assert.Equal(t, "midpoint", cfg.Market.ClearingRule)
	assert.Equal(t, 12, cfg.Loan.TermTicks)
	assert.Equal(t, "lendsim.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
simulation:
  horizon: 50
loan:
  schedule: interest_only
  term_ticks: 6
market:
  clearing_rule: offer-side
`))
	require.NoError(t, err)

	assert.Equal(t, "interest_only", cfg.Loan.Schedule)
	assert.Equal(t, 6, cfg.Loan.TermTicks)
	assert.Equal(t, "offer-side", cfg.Market.ClearingRule)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("LENDSIM_SEED", "777")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(777), cfg.Simulation.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "simulation: [not a map"))
	require.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			"unknown schedule",
			"loan:\n  schedule: bullet\n",
			"loan.schedule",
		},
		{
			"unknown clearing rule",
			"market:\n  clearing_rule: auction\n",
			"market.clearing_rule",
		},
		{
			"reserve ratio at one",
			"population:\n  lender_reserve_ratio: 1.0\n",
			"population.lender_reserve_ratio",
		},
		{
			"tier shares off one",
			`population:
  tiers:
    - name: only
      share: 0.5
      capital_min: 100
      capital_max: 200
      request_prob: 0.1
`,
			"population.tiers",
		},
		{
			"tier request_prob above one",
			`population:
  tiers:
    - name: only
      share: 1.0
      capital_min: 100
      capital_max: 200
      request_prob: 1.5
`,
			"population.tiers",
		},
		{
			"inverted collateral range",
			`population:
  tiers:
    - name: only
      share: 1.0
      capital_min: 100
      capital_max: 200
      collateral_min: 500
      collateral_max: 100
      request_prob: 0.1
`,
			"population.tiers",
		},
		{
			"inverted rate bounds",
			"rates:\n  min: 0.4\n  max: 0.1\n",
			"rates",
		},
		{
			"inverted volatility range",
			"volatility:\n  min: 0.5\n  max: 0.1\n",
			"volatility",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			var cerr *domain.ConfigurationError
			require.True(t, errors.As(err, &cerr), "want ConfigurationError, got %v", err)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestYAML_RoundTrips(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	out := cfg.YAML()
	assert.Contains(t, out, "horizon: 100")
	assert.Contains(t, out, "schedule: amortizing")
	assert.Contains(t, out, "clearing_rule: midpoint")
}
