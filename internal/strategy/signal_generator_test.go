package strategy

import (
	"testing"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"
	"equity-algo-trader/pkg/ta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator(t *testing.T) *SignalGenerator {
	t.Helper()
	indCfg := &service.IndicatorConfig{
		MinBars: 50, RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		BBPeriod: 20, BBStd: 2, SMAShort: 20, SMALong: 50, EMAFast: 12, EMASlow: 26,
		ADXPeriod: 14, StochFastK: 14, StochSlowK: 3, StochSlowD: 3,
		WilliamsRPeriod: 14, CCIPeriod: 20, MomentumPeriod: 10, VolumeSMAPeriod: 20,
	}
	cfg := testStrategyConfig()
	fusion, err := NewFusionEngine(cfg, DefaultStrategies(cfg), nil)
	require.NoError(t, err)
	return NewSignalGenerator(ta.NewCalculator(indCfg, nil), fusion, nil)
}

func TestGenerateSignalInsufficientData(t *testing.T) {
	gen := testGenerator(t)
	quote := model.Quote{Symbol: "RELIANCE", Price: 2500}

	sig := gen.GenerateSignal(quote, flatBars(10, 2500, 10000))

	assert.Equal(t, model.DirectionHold, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, []string{"Insufficient data for analysis"}, sig.Reasons)
	assert.InDelta(t, 2500, sig.Entry, 1e-9)
}

func TestGenerateSignalEndToEnd(t *testing.T) {
	gen := testGenerator(t)
	bars := flatBars(60, 100, 10000)
	quote := model.Quote{Symbol: "TCS", Price: 100, Volume: 10000, Timestamp: bars[len(bars)-1].Timestamp}

	sig := gen.GenerateSignal(quote, bars)

	// 零波动行情下不应出现任何交易方向
	assert.Equal(t, model.DirectionHold, sig.Direction)
	assert.Equal(t, "TCS", sig.Symbol)
	assert.LessOrEqual(t, sig.Confidence, 50.0)
	assert.NotEmpty(t, sig.Reasons)
}
