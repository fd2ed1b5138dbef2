package strategy

import (
	"fmt"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"
)

// MeanReversion 均值回归策略：RSI / 布林带 / Williams %R / CCI 的超买超卖共振。
// 至少 2 个条件同向才给出方向，防止单一指标噪声触发。
type MeanReversion struct {
	cfg *service.StrategyConfig
}

func NewMeanReversion(cfg *service.StrategyConfig) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

func (s *MeanReversion) Name() string { return NameMeanReversion }

func (s *MeanReversion) Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict {
	var buy, sell int
	var reasons []string
	price := quote.Price

	if ind.RSI < s.cfg.RSIOversold {
		buy++
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f < %.0f)", ind.RSI, s.cfg.RSIOversold))
	} else if ind.RSI > s.cfg.RSIOverbought {
		sell++
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f > %.0f)", ind.RSI, s.cfg.RSIOverbought))
	}

	if price <= ind.BBLower {
		buy++
		reasons = append(reasons, fmt.Sprintf("Price at lower Bollinger Band (%.2f)", ind.BBLower))
	} else if price >= ind.BBUpper {
		sell++
		reasons = append(reasons, fmt.Sprintf("Price at upper Bollinger Band (%.2f)", ind.BBUpper))
	}

	if ind.WilliamsR < -80 {
		buy++
		reasons = append(reasons, fmt.Sprintf("Williams %%R oversold (%.1f)", ind.WilliamsR))
	} else if ind.WilliamsR > -20 {
		sell++
		reasons = append(reasons, fmt.Sprintf("Williams %%R overbought (%.1f)", ind.WilliamsR))
	}

	if ind.CCI < -100 {
		buy++
		reasons = append(reasons, fmt.Sprintf("CCI oversold (%.1f)", ind.CCI))
	} else if ind.CCI > 100 {
		sell++
		reasons = append(reasons, fmt.Sprintf("CCI overbought (%.1f)", ind.CCI))
	}

	// 共振要求：≥2 个条件同向
	switch {
	case buy >= 2:
		return verdict(s.Name(), buy, 0, 50, 10, 85, reasons, 25, "")
	case sell >= 2:
		return verdict(s.Name(), 0, sell, 50, 10, 85, reasons, 25, "")
	default:
		return model.StrategyVerdict{
			Strategy:   s.Name(),
			Direction:  model.DirectionHold,
			Confidence: 25,
			Reasons:    []string{"Mean reversion signals inconclusive"},
		}
	}
}
