package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"

	"go.uber.org/zap"
)

// 融合信号中各策略理由的前缀
var strategyLabels = map[string]string{
	NameTrendFollowing: "Trend",
	NameMeanReversion:  "Mean Rev",
	NameMomentum:       "Momentum",
	NameBreakout:       "Breakout",
	NameVolumeAnalysis: "Volume",
}

const maxSignalReasons = 10

// FusionEngine 负责将五个子策略的判定按固定权重合成为一个最终信号。
// 设计上任何单一策略都无法独自触发交易，必须多策略共振。
type FusionEngine struct {
	cfg        *service.StrategyConfig
	strategies []Strategy
	weights    map[string]float64
	logger     *zap.Logger
}

// NewFusionEngine 初始化融合引擎并校验权重表。
// 权重总和偏离 1.0 或策略与权重不匹配时返回 ErrInvalidConfiguration。
func NewFusionEngine(cfg *service.StrategyConfig, strategies []Strategy, logger *zap.Logger) (*FusionEngine, error) {
	weights := cfg.Weights()

	var sum float64
	for _, s := range strategies {
		w, ok := weights[s.Name()]
		if !ok {
			return nil, fmt.Errorf("%w: no weight configured for strategy %q", model.ErrInvalidConfiguration, s.Name())
		}
		sum += w
	}
	if len(strategies) != len(weights) {
		return nil, fmt.Errorf("%w: expected %d strategies, got %d", model.ErrInvalidConfiguration, len(weights), len(strategies))
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("%w: strategy weights sum to %.9f, want 1.0", model.ErrInvalidConfiguration, sum)
	}

	return &FusionEngine{cfg: cfg, strategies: strategies, weights: weights, logger: logger}, nil
}

// EvaluateAll 按注册顺序运行全部子策略
func (f *FusionEngine) EvaluateAll(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) []model.StrategyVerdict {
	verdicts := make([]model.StrategyVerdict, 0, len(f.strategies))
	for _, s := range f.strategies {
		verdicts = append(verdicts, s.Evaluate(ind, quote, bars))
	}
	return verdicts
}

// Fuse 加权合成最终信号。
// score = Σ weight_i × signed_confidence_i，BUY 为正、SELL 为负、HOLD 为 0；
// score > 阈值 ⇒ BUY，< -阈值 ⇒ SELL，否则 HOLD。
func (f *FusionEngine) Fuse(quote model.Quote, ind *model.IndicatorSet, verdicts []model.StrategyVerdict) model.Signal {
	var score, totalWeight float64
	for _, v := range verdicts {
		w := f.weights[v.Strategy]
		switch v.Direction {
		case model.DirectionBuy:
			score += v.Confidence * w
		case model.DirectionSell:
			score -= v.Confidence * w
		}
		totalWeight += w
	}
	if totalWeight > 0 {
		score /= totalWeight
	}

	sig := model.Signal{
		Symbol:    quote.Symbol,
		Entry:     quote.Price,
		Reasons:   f.collectReasons(verdicts),
		CreatedAt: time.Now(),
	}
	if ind != nil {
		sig.Indicators = *ind // 快照拷贝，信号持有的指标不随后续计算变化
	}

	switch {
	case score > f.cfg.ScoreThreshold:
		sig.Direction = model.DirectionBuy
		sig.Confidence = math.Min(95, math.Abs(score))
		sig.PriceTarget = quote.Price * (1 + f.cfg.TargetPercent)
		sig.StopLoss = quote.Price * (1 - f.cfg.StopPercent)
		sig.RiskReward = f.cfg.RiskReward
	case score < -f.cfg.ScoreThreshold:
		sig.Direction = model.DirectionSell
		sig.Confidence = math.Min(95, math.Abs(score))
		sig.PriceTarget = quote.Price * (1 - f.cfg.TargetPercent)
		sig.StopLoss = quote.Price * (1 + f.cfg.StopPercent)
		sig.RiskReward = f.cfg.RiskReward
	default:
		sig.Direction = model.DirectionHold
		sig.Confidence = math.Max(0, 50-math.Abs(score))
	}

	if f.logger != nil {
		f.logger.Debug("Signal fused",
			zap.String("symbol", quote.Symbol),
			zap.Float64("score", score),
			zap.String("direction", string(sig.Direction)),
			zap.Float64("confidence", sig.Confidence))
	}

	return sig
}

// collectReasons 按 (权重降序, 注册顺序) 排列各策略理由并截断到上限
func (f *FusionEngine) collectReasons(verdicts []model.StrategyVerdict) []string {
	ordered := make([]model.StrategyVerdict, len(verdicts))
	copy(ordered, verdicts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return f.weights[ordered[i].Strategy] > f.weights[ordered[j].Strategy]
	})

	reasons := make([]string, 0, maxSignalReasons)
	for _, v := range ordered {
		label := strategyLabels[v.Strategy]
		for _, r := range v.Reasons {
			if len(reasons) >= maxSignalReasons {
				return reasons
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", label, r))
		}
	}
	return reasons
}
