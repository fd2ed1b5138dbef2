package strategy

import (
	"fmt"

	"equity-algo-trader/internal/model"
)

// 突破确认参数
const (
	breakoutLookback  = 20    // 高低点回看 K 线数
	breakoutBuffer    = 0.001 // 0.1% 的突破缓冲
	squeezeWidth      = 0.02  // 布林带收窄阈值 (带宽/中轨)
	volumeConfirmMult = 1.5   // 近期成交量相对均量的确认倍数
)

// Breakout 突破策略：20 根 K 线高低点突破 + 布林带收窄突破，成交量确认
type Breakout struct{}

func NewBreakout() *Breakout { return &Breakout{} }

func (s *Breakout) Name() string { return NameBreakout }

func (s *Breakout) Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict {
	var buy, sell int
	var reasons []string
	price := quote.Price

	if len(bars) >= breakoutLookback {
		window := bars[len(bars)-breakoutLookback:]
		high := window[0].High
		low := window[0].Low
		for _, b := range window[1:] {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}

		if price > high*(1+breakoutBuffer) {
			buy++
			reasons = append(reasons, fmt.Sprintf("Breakout above %d-bar high (%.2f)", breakoutLookback, high))
		} else if price < low*(1-breakoutBuffer) {
			sell++
			reasons = append(reasons, fmt.Sprintf("Breakdown below %d-bar low (%.2f)", breakoutLookback, low))
		}
	}

	// 布林带收窄后的突破往往是新行情的起点
	if ind.BBMiddle > 0 {
		width := (ind.BBUpper - ind.BBLower) / ind.BBMiddle
		if width < squeezeWidth {
			if price > ind.BBUpper {
				buy++
				reasons = append(reasons, "Bullish breakout from tight Bollinger Bands")
			} else if price < ind.BBLower {
				sell++
				reasons = append(reasons, "Bearish breakdown from tight Bollinger Bands")
			}
		}
	}

	// 成交量确认：最近 5 根均量显著放大
	if (buy > 0 || sell > 0) && len(bars) >= 5 && ind.VolumeSMA > 0 {
		var recent float64
		for _, b := range bars[len(bars)-5:] {
			recent += b.Volume
		}
		if recent/5 > ind.VolumeSMA*volumeConfirmMult {
			reasons = append(reasons, "High volume confirms breakout")
		}
	}

	// 突破是单边事件，任一侧有票即给方向
	switch {
	case buy > 0:
		return verdict(s.Name(), buy, 0, 60, 15, 90, reasons, 20, "")
	case sell > 0:
		return verdict(s.Name(), 0, sell, 60, 15, 90, reasons, 20, "")
	default:
		return model.StrategyVerdict{
			Strategy:   s.Name(),
			Direction:  model.DirectionHold,
			Confidence: 20,
			Reasons:    []string{"No breakout detected"},
		}
	}
}
