package strategy

import (
	"errors"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"
	"equity-algo-trader/pkg/ta"

	"go.uber.org/zap"
)

// SignalGenerator 是策略层的入口：指标计算 -> 五策略评估 -> 加权融合
type SignalGenerator struct {
	calc   *ta.Calculator
	fusion *FusionEngine
	logger *zap.Logger
}

// NewSignalGenerator 初始化信号生成器
func NewSignalGenerator(calc *ta.Calculator, fusion *FusionEngine, logger *zap.Logger) *SignalGenerator {
	return &SignalGenerator{calc: calc, fusion: fusion, logger: logger}
}

// DefaultStrategies 返回按固定注册顺序排列的五个子策略
func DefaultStrategies(cfg *service.StrategyConfig) []Strategy {
	return []Strategy{
		NewTrendFollowing(),
		NewMeanReversion(cfg),
		NewMomentum(),
		NewBreakout(),
		NewVolumeAnalysis(),
	}
}

// GenerateSignal 对最新行情和 K 线历史生成一个融合信号。
// 数据不足时降级为 HOLD、置信度 0，不返回错误。
func (sg *SignalGenerator) GenerateSignal(quote model.Quote, bars []model.Bar) model.Signal {
	ind, err := sg.calc.Compute(bars)
	if err != nil {
		if !errors.Is(err, model.ErrInsufficientData) && sg.logger != nil {
			sg.logger.Warn("Indicator computation failed", zap.Error(err))
		}
		return model.Signal{
			Symbol:     quote.Symbol,
			Direction:  model.DirectionHold,
			Confidence: 0,
			Entry:      quote.Price,
			Reasons:    []string{"Insufficient data for analysis"},
		}
	}

	verdicts := sg.fusion.EvaluateAll(ind, quote, bars)
	return sg.fusion.Fuse(quote, ind, verdicts)
}
