package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "USDC", cfg.Token0)
	assert.Equal(t, uint8(6), cfg.Decimals0)
	assert.Equal(t, 500, cfg.Fee)
	assert.Equal(t, "half-gap", cfg.Strategy)
	assert.Equal(t, 86400, cfg.HarvestInterval)
	assert.Zero(t, cfg.MaxPriceDeviationBps)
	assert.Nil(t, cfg.Intervals)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fee: 3000
tick-lower: -600
tick-upper: 600
strategy: price-aware
intervals: [3600, 86400]
`), 0o644))

	t.Setenv("COMPOUNDER_TICK_UPPER", "1200")
	t.Setenv("COMPOUNDER_PG_DSN", "postgres://localhost/sim")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("strategy", "half-gap", "")
	require.NoError(t, flags.Parse([]string{"--strategy=half-gap"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Fee, "from file")
	assert.Equal(t, -600, cfg.TickLower)
	assert.Equal(t, 1200, cfg.TickUpper, "env beats file")
	assert.Equal(t, "half-gap", cfg.Strategy, "set flag beats file")
	assert.Equal(t, "postgres://localhost/sim", cfg.PgDSN)
	assert.Equal(t, []int{3600, 86400}, cfg.Intervals)
}

func TestLoadIntervalsFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("COMPOUNDER_INTERVALS", "3600, 7200")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3600, 7200}, cfg.Intervals)

	t.Setenv("COMPOUNDER_INTERVALS", "hourly")
	_, err = Load("", nil)
	assert.Error(t, err)
}

func TestLoadDecimalsOutOfRange(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"COMPOUNDER_DECIMALS0", "256"},
		{"COMPOUNDER_DECIMALS1", "300"},
		{"COMPOUNDER_DECIMALS0", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load("", nil)
			assert.ErrorContains(t, err, "out of range")
		})
	}

	chdir(t, t.TempDir())
	t.Setenv("COMPOUNDER_DECIMALS1", "255")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), cfg.Decimals1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
