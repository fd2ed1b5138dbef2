package service

import (
	"testing"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Indicator: IndicatorConfig{
			MinBars: 50, RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
			BBPeriod: 20, BBStd: 2, SMAShort: 20, SMALong: 50, EMAFast: 12, EMASlow: 26,
			ADXPeriod: 14, StochFastK: 14, StochSlowK: 3, StochSlowD: 3,
			WilliamsRPeriod: 14, CCIPeriod: 20, MomentumPeriod: 10, VolumeSMAPeriod: 20,
		},
		Strategy: StrategyConfig{
			RSIOversold: 30, RSIOverbought: 70,
			TrendWeight: 0.25, MeanReversionWeight: 0.20, MomentumWeight: 0.25,
			BreakoutWeight: 0.15, VolumeWeight: 0.15,
			ScoreThreshold: 20, TargetPercent: 0.03, StopPercent: 0.02, RiskReward: 1.5,
		},
		Risk: RiskConfig{
			MinSignalConfidence: 70, MaxPositionFraction: 0.20, MaxPortfolioRisk: 0.02,
			MaxPositions: 10, MinNotional: 1000, ConfidenceRiskFactor: 0.08,
		},
		Execution: ExecutionConfig{
			InitialCapital: 1_000_000, Slippage: 0.0005,
			CommissionRate: 0.001, CommissionMin: 10, QuoteStaleness: 10 * time.Second,
		},
		Instances: map[string]InstanceConfig{
			"reliance_5m": {Symbol: "RELIANCE", Interval: "5m", Lookback: 200},
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsUnbalancedWeights(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy.TrendWeight = 0.40

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestValidateRejectsInvertedMACDPeriods(t *testing.T) {
	cfg := validConfig()
	cfg.Indicator.MACDFast = 30

	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
}

func TestValidateRejectsShortMinBars(t *testing.T) {
	cfg := validConfig()
	cfg.Indicator.MinBars = 30 // 低于 SMALong

	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
}

func TestValidateRejectsBadInstanceInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Instances["bad"] = InstanceConfig{Symbol: "TCS", Interval: "5x"}

	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
}

func TestValidateRejectsMissingInstanceSymbol(t *testing.T) {
	cfg := validConfig()
	cfg.Instances["bad"] = InstanceConfig{Interval: "5m"}

	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
}

func TestValidateRejectsOutOfRangeRisk(t *testing.T) {
	cfg := validConfig()
	cfg.Risk.MaxPositionFraction = 1.5

	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	// 目录不存在时允许启动，全部使用默认值
	cfg, err := LoadConfig("testdata/does-not-exist")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Indicator.MinBars)
	assert.InDelta(t, 0.25, cfg.Strategy.TrendWeight, 1e-9)
	assert.InDelta(t, 1_000_000, cfg.Execution.InitialCapital, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Execution.QuoteStaleness)
}

func TestParseIntervalDuration(t *testing.T) {
	d, err := ParseIntervalDuration("5m")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = ParseIntervalDuration("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	_, err = ParseIntervalDuration("5x")
	assert.Error(t, err)
	_, err = ParseIntervalDuration("m")
	assert.Error(t, err)
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "5m", FormatInterval(5*time.Minute))
	assert.Equal(t, "1h", FormatInterval(time.Hour))
	assert.Equal(t, "30s", FormatInterval(30*time.Second))
}
