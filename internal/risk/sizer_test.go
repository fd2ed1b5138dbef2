package risk

import (
	"testing"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/portfolio"
	"equity-algo-trader/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRiskConfig() *service.RiskConfig {
	return &service.RiskConfig{
		MinSignalConfidence:  70,
		MaxPositionFraction:  0.20,
		MaxPortfolioRisk:     0.02,
		MaxPositions:         10,
		MinNotional:          1000,
		ConfidenceRiskFactor: 0.08,
	}
}

func testView(cash, pv float64, positions ...string) portfolio.View {
	v := portfolio.View{Cash: cash, PortfolioValue: pv, Positions: map[string]model.Position{}}
	for _, sym := range positions {
		v.Positions[sym] = model.Position{Symbol: sym}
	}
	return v
}

func buySignal(symbol string, confidence, entry, stop float64) model.Signal {
	return model.Signal{
		Symbol:      symbol,
		Direction:   model.DirectionBuy,
		Confidence:  confidence,
		Entry:       entry,
		StopLoss:    stop,
		PriceTarget: entry * 1.03,
	}
}

func assertRejected(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	got, ok := model.RejectReason(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, reason, got)
}

func TestSizeRejectsHoldSignal(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)
	sig := buySignal("RELIANCE", 80, 100, 98)
	sig.Direction = model.DirectionHold

	_, err := s.Size(sig, testView(1_000_000, 1_000_000))
	assertRejected(t, err, ReasonHoldSignal)
}

func TestSizeRejectsLowConfidence(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	_, err := s.Size(buySignal("RELIANCE", 69.9, 100, 98), testView(1_000_000, 1_000_000))
	assertRejected(t, err, ReasonLowConfidence)
}

func TestSizeRejectsExistingPosition(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	_, err := s.Size(buySignal("RELIANCE", 80, 100, 98), testView(1_000_000, 1_000_000, "RELIANCE"))
	assertRejected(t, err, ReasonPositionExists)
}

func TestSizeRejectsAtMaxPositions(t *testing.T) {
	cfg := testRiskConfig()
	cfg.MaxPositions = 2
	s := NewSizer(cfg, nil)

	_, err := s.Size(buySignal("RELIANCE", 80, 100, 98), testView(1_000_000, 1_000_000, "TCS", "INFY"))
	assertRejected(t, err, ReasonMaxPositions)
}

func TestSizeQuantityFormula(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	// baseRisk = min(0.20, 0.80*0.08) = 0.064
	// riskAmount = 1e6 * 0.064 * 0.02 = 1280；单位风险 = 2 → 640 股
	req, err := s.Size(buySignal("RELIANCE", 80, 100, 98), testView(1_000_000, 1_000_000))
	require.NoError(t, err)

	assert.Equal(t, model.OrderBuy, req.Side)
	assert.Equal(t, model.OrderMarket, req.Type)
	assert.EqualValues(t, 640, req.Quantity)
	assert.InDelta(t, 98, req.StopLoss, 1e-9)
	assert.InDelta(t, 103, req.TakeProfit, 1e-9)
}

func TestSizeGrowsWithConfidence(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)
	view := testView(1_000_000, 1_000_000)

	low, err := s.Size(buySignal("RELIANCE", 70, 100, 98), view)
	require.NoError(t, err)
	high, err := s.Size(buySignal("RELIANCE", 95, 100, 98), view)
	require.NoError(t, err)

	assert.Greater(t, high.Quantity, low.Quantity)
}

func TestSizeClampedByMaxPositionFraction(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	// 止损极近导致公式给出的数量远超单仓上限
	req, err := s.Size(buySignal("RELIANCE", 95, 100, 99.9), testView(1_000_000, 1_000_000))
	require.NoError(t, err)

	assert.EqualValues(t, 2000, req.Quantity) // floor(1e6*0.20/100)
}

func TestSizeFloorsToMinNotional(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	// 小组合算出 5 股，不足最小下单金额对应的 10 股
	req, err := s.Size(buySignal("RELIANCE", 70, 100, 98), testView(10_000, 10_000))
	require.NoError(t, err)

	assert.EqualValues(t, 10, req.Quantity)
}

func TestSizeMissingStopFallsBackToTwoPercent(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	sig := buySignal("RELIANCE", 80, 100, 0)
	req, err := s.Size(sig, testView(1_000_000, 1_000_000))
	require.NoError(t, err)

	// 单位风险退化为 2% 入场价 = 2，与显式止损 98 时数量一致
	assert.EqualValues(t, 640, req.Quantity)
}

func TestSizeRejectsWhenCashInsufficient(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	// 组合价值大但现金被占用，买单名义金额超出现金
	_, err := s.Size(buySignal("RELIANCE", 80, 100, 98), testView(500, 1_000_000))
	assertRejected(t, err, ReasonQuantityInvalid)
}

func TestSizeSellSignalProducesSellOrder(t *testing.T) {
	s := NewSizer(testRiskConfig(), nil)

	sig := model.Signal{
		Symbol:      "TCS",
		Direction:   model.DirectionSell,
		Confidence:  85,
		Entry:       100,
		StopLoss:    102,
		PriceTarget: 97,
	}
	req, err := s.Size(sig, testView(1_000_000, 1_000_000))
	require.NoError(t, err)

	assert.Equal(t, model.OrderSell, req.Side)
	assert.Greater(t, req.Quantity, int64(0))
}
