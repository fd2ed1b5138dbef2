package strategy

import (
	"equity-algo-trader/internal/model"
)

// 策略标识，同时是配置中权重表的 key
const (
	NameTrendFollowing = "trend_following"
	NameMeanReversion  = "mean_reversion"
	NameMomentum       = "momentum"
	NameBreakout       = "breakout"
	NameVolumeAnalysis = "volume_analysis"
)

// Strategy 是子策略的统一接口。
// Evaluate 必须是确定性的：相同输入永远产生相同的判定和理由字符串。
type Strategy interface {
	Name() string
	Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict
}

// verdict 根据买卖票数和置信度公式收敛出最终判定
// base + step*票数，上限 cap；票数相等时返回 HOLD
func verdict(name string, buyCount, sellCount int, base, step, cap float64,
	reasons []string, holdConfidence float64, holdReason string) model.StrategyVerdict {

	conf := func(votes int) float64 {
		c := base + step*float64(votes)
		if c > cap {
			c = cap
		}
		return c
	}

	switch {
	case buyCount > sellCount:
		return model.StrategyVerdict{Strategy: name, Direction: model.DirectionBuy, Confidence: conf(buyCount), Reasons: reasons}
	case sellCount > buyCount:
		return model.StrategyVerdict{Strategy: name, Direction: model.DirectionSell, Confidence: conf(sellCount), Reasons: reasons}
	default:
		return model.StrategyVerdict{Strategy: name, Direction: model.DirectionHold, Confidence: holdConfidence, Reasons: []string{holdReason}}
	}
}
