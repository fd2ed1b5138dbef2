package strategy

import (
	"fmt"

	"equity-algo-trader/internal/model"
)

// TrendFollowing 趋势跟随策略：均线排列 + EMA 交叉，ADX 确认趋势强度
type TrendFollowing struct{}

func NewTrendFollowing() *TrendFollowing { return &TrendFollowing{} }

func (s *TrendFollowing) Name() string { return NameTrendFollowing }

func (s *TrendFollowing) Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict {
	var buy, sell int
	var reasons []string
	price := quote.Price

	// 均线排列：短均线在长均线之上且价格站上短均线
	if ind.SMAShort > ind.SMALong {
		if price > ind.SMAShort {
			buy++
			reasons = append(reasons, fmt.Sprintf("Price above upward trending SMA (%.2f)", ind.SMAShort))
		}
	} else {
		if price < ind.SMAShort {
			sell++
			reasons = append(reasons, fmt.Sprintf("Price below downward trending SMA (%.2f)", ind.SMAShort))
		}
	}

	// EMA 交叉
	if ind.EMAFast > ind.EMASlow {
		buy++
		reasons = append(reasons, "Fast EMA above slow EMA (bullish trend)")
	} else {
		sell++
		reasons = append(reasons, "Fast EMA below slow EMA (bearish trend)")
	}

	// ADX 只做强度确认，不单独投票
	if ind.ADX > 25 && (buy > 0 || sell > 0) {
		reasons = append(reasons, fmt.Sprintf("Strong trend confirmed by ADX (%.1f)", ind.ADX))
	}

	return verdict(s.Name(), buy, sell, 40, 15, 80, reasons, 30, "Trend signals mixed")
}
