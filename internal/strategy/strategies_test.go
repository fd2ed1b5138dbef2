package strategy

import (
	"testing"
	"time"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStrategyConfig() *service.StrategyConfig {
	return &service.StrategyConfig{
		RSIOversold:         30,
		RSIOverbought:       70,
		TrendWeight:         0.25,
		MeanReversionWeight: 0.20,
		MomentumWeight:      0.25,
		BreakoutWeight:      0.15,
		VolumeWeight:        0.15,
		ScoreThreshold:      20,
		TargetPercent:       0.03,
		StopPercent:         0.02,
		RiskReward:          1.5,
	}
}

// neutralIndicators 不触发任何子策略条件的指标组合
func neutralIndicators() *model.IndicatorSet {
	return &model.IndicatorSet{
		RSI:        50,
		MACD:       0,
		MACDSignal: 0,
		MACDHist:   0,
		BBUpper:    105,
		BBMiddle:   100,
		BBLower:    95,
		SMAShort:   100,
		SMALong:    100,
		EMAFast:    100,
		EMASlow:    100,
		VolumeSMA:  10000,
		ADX:        20,
		StochK:     50,
		StochD:     50,
		WilliamsR:  -50,
		CCI:        0,
	}
}

func flatBars(n int, price, volume float64) []model.Bar {
	start := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      price, High: price, Low: price, Close: price,
			Volume: volume,
		}
	}
	return bars
}

func TestTrendFollowingBullishAlignment(t *testing.T) {
	ind := neutralIndicators()
	ind.SMAShort = 102
	ind.SMALong = 98
	ind.EMAFast = 103
	ind.EMASlow = 99
	ind.ADX = 32

	v := NewTrendFollowing().Evaluate(ind, model.Quote{Symbol: "RELIANCE", Price: 105}, nil)

	assert.Equal(t, model.DirectionBuy, v.Direction)
	assert.InDelta(t, 70, v.Confidence, 1e-9) // 40 + 15*2
	assert.Contains(t, v.Reasons[len(v.Reasons)-1], "ADX")
}

func TestTrendFollowingMixedIsHold(t *testing.T) {
	ind := neutralIndicators()
	ind.SMAShort = 102
	ind.SMALong = 98
	ind.EMAFast = 99 // 均线多头但 EMA 空头，1:1 平票
	ind.EMASlow = 100

	v := NewTrendFollowing().Evaluate(ind, model.Quote{Price: 105}, nil)

	assert.Equal(t, model.DirectionHold, v.Direction)
	assert.InDelta(t, 30, v.Confidence, 1e-9)
}

func TestMeanReversionRequiresConfluence(t *testing.T) {
	cfg := testStrategyConfig()
	s := NewMeanReversion(cfg)

	// 只有 RSI 超卖：单一条件不触发方向
	ind := neutralIndicators()
	ind.RSI = 25
	v := s.Evaluate(ind, model.Quote{Price: 100}, nil)
	assert.Equal(t, model.DirectionHold, v.Direction)

	// RSI + 布林下轨 + Williams %R 三条件共振
	ind.WilliamsR = -85
	v = s.Evaluate(ind, model.Quote{Price: 94}, nil)
	assert.Equal(t, model.DirectionBuy, v.Direction)
	assert.InDelta(t, 80, v.Confidence, 1e-9) // 50 + 10*3
	assert.Len(t, v.Reasons, 3)
}

func TestMomentumBearish(t *testing.T) {
	ind := neutralIndicators()
	ind.MACD = -1
	ind.MACDSignal = -0.5
	ind.MACDHist = -0.5
	ind.StochK = 40
	ind.StochD = 60
	ind.Momentum = -3

	v := NewMomentum().Evaluate(ind, model.Quote{Price: 100, ChangePercent: -2.5}, nil)

	assert.Equal(t, model.DirectionSell, v.Direction)
	assert.InDelta(t, 85, v.Confidence, 1e-9) // 45 + 12*4 截断到 85
}

func TestBreakoutAboveRangeHigh(t *testing.T) {
	bars := flatBars(30, 100, 10000)
	ind := neutralIndicators()

	v := NewBreakout().Evaluate(ind, model.Quote{Price: 101}, bars)

	require.Equal(t, model.DirectionBuy, v.Direction)
	assert.InDelta(t, 75, v.Confidence, 1e-9) // 60 + 15*1
	assert.Contains(t, v.Reasons[0], "20-bar high")
}

func TestBreakoutInsideRangeIsHold(t *testing.T) {
	bars := flatBars(30, 100, 10000)
	ind := neutralIndicators()
	ind.BBUpper = 110 // 带宽足够宽，不构成收窄突破

	v := NewBreakout().Evaluate(ind, model.Quote{Price: 100}, bars)

	assert.Equal(t, model.DirectionHold, v.Direction)
	assert.Equal(t, []string{"No breakout detected"}, v.Reasons)
}

func TestVolumeSpikeFollowsPriceDirection(t *testing.T) {
	ind := neutralIndicators()
	s := NewVolumeAnalysis()

	v := s.Evaluate(ind, model.Quote{Price: 100, Volume: 25000, ChangePercent: 1.2}, nil)
	assert.Equal(t, model.DirectionBuy, v.Direction)

	v = s.Evaluate(ind, model.Quote{Price: 100, Volume: 25000, ChangePercent: -1.2}, nil)
	assert.Equal(t, model.DirectionSell, v.Direction)
}

func TestStrategiesAreDeterministic(t *testing.T) {
	cfg := testStrategyConfig()
	ind := neutralIndicators()
	ind.RSI = 25
	ind.WilliamsR = -85
	quote := model.Quote{Symbol: "TCS", Price: 94, Volume: 30000, ChangePercent: -2.4}
	bars := flatBars(60, 94, 12000)

	for _, s := range DefaultStrategies(cfg) {
		first := s.Evaluate(ind, quote, bars)
		second := s.Evaluate(ind, quote, bars)
		assert.Equal(t, first, second, "strategy %s is not deterministic", s.Name())
	}
}
