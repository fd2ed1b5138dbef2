package strategy

import (
	"fmt"

	"equity-algo-trader/internal/model"
)

// Momentum 动量策略：MACD / 随机指标交叉 / 价格动量 / 日内涨跌幅
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (s *Momentum) Name() string { return NameMomentum }

func (s *Momentum) Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict {
	var buy, sell int
	var reasons []string

	if ind.MACD > ind.MACDSignal && ind.MACDHist > 0 {
		buy++
		reasons = append(reasons, "MACD bullish (above signal line with positive histogram)")
	} else if ind.MACD < ind.MACDSignal && ind.MACDHist < 0 {
		sell++
		reasons = append(reasons, "MACD bearish (below signal line with negative histogram)")
	}

	// 随机指标交叉，带超买超卖边界过滤
	if ind.StochK > ind.StochD && ind.StochK < 80 {
		buy++
		reasons = append(reasons, fmt.Sprintf("Stochastic bullish crossover (K=%.1f)", ind.StochK))
	} else if ind.StochK < ind.StochD && ind.StochK > 20 {
		sell++
		reasons = append(reasons, fmt.Sprintf("Stochastic bearish crossover (K=%.1f)", ind.StochK))
	}

	if ind.Momentum > 0 {
		buy++
		reasons = append(reasons, fmt.Sprintf("Positive price momentum (%.2f)", ind.Momentum))
	} else if ind.Momentum < 0 {
		sell++
		reasons = append(reasons, fmt.Sprintf("Negative price momentum (%.2f)", ind.Momentum))
	}

	// 日内动量：涨跌幅超过 2% 视为强动量
	if quote.ChangePercent > 2 {
		buy++
		reasons = append(reasons, fmt.Sprintf("Strong intraday momentum (+%.1f%%)", quote.ChangePercent))
	} else if quote.ChangePercent < -2 {
		sell++
		reasons = append(reasons, fmt.Sprintf("Strong intraday decline (%.1f%%)", quote.ChangePercent))
	}

	return verdict(s.Name(), buy, sell, 45, 12, 85, reasons, 35, "Momentum signals neutral")
}
