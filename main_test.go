package main

import (
	"testing"

	"github.com/ftchann/uniswap-compounder/lib/config"
	strat "github.com/ftchann/uniswap-compounder/lib/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() config.Config {
	return config.Config{
		Token0:       "USDC",
		Token1:       "WETH",
		Decimals0:    6,
		Decimals1:    18,
		Fee:          500,
		SqrtPriceX96: "1350174849792634181862360983626536",
		TickLower:    190880,
		TickUpper:    198880,
		Strategy:     "half-gap",
		Deposit0:     "1000000",
		Deposit1:     "290000000000000",
	}
}

func TestExecutionConfig(t *testing.T) {
	cfg, err := executionConfig(baseConfig(), 3600)
	require.NoError(t, err)
	assert.Equal(t, 3600, cfg.HarvestInterval)
	assert.Equal(t, "1350174849792634181862360983626536", cfg.SqrtPriceX96.ToBig().String())
	assert.Equal(t, uint64(1000000), cfg.Deposit0.Uint64())
	assert.IsType(t, strat.HalfGap{}, cfg.Strategy)
}

func TestExecutionConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"strategy", func(c *config.Config) { c.Strategy = "martingale" }},
		{"sqrt price", func(c *config.Config) { c.SqrtPriceX96 = "0x12" }},
		{"deposit0", func(c *config.Config) { c.Deposit0 = "-1" }},
		{"deposit1", func(c *config.Config) { c.Deposit1 = "1.5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.modify(&cfg)
			_, err := executionConfig(cfg, 0)
			assert.Error(t, err)
		})
	}
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "USDC-WETH-500-half-gap-190880-198880-86400", runID(baseConfig(), 86400))
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
