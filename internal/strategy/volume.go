package strategy

import (
	"fmt"

	"equity-algo-trader/internal/model"
)

const (
	volumeSpikeMult = 2.0 // 放量阈值：当前量超过均量 2 倍
	obvLookback     = 20  // OBV 代理的回看 K 线数
)

// VolumeAnalysis 量能分析策略：放量方向 + OBV 代理趋势
type VolumeAnalysis struct{}

func NewVolumeAnalysis() *VolumeAnalysis { return &VolumeAnalysis{} }

func (s *VolumeAnalysis) Name() string { return NameVolumeAnalysis }

func (s *VolumeAnalysis) Evaluate(ind *model.IndicatorSet, quote model.Quote, bars []model.Bar) model.StrategyVerdict {
	var buy, sell int
	var reasons []string

	// 放量且方向与价格变化一致
	if ind.VolumeSMA > 0 && quote.Volume > ind.VolumeSMA*volumeSpikeMult {
		if quote.ChangePercent > 0 {
			buy++
			reasons = append(reasons, fmt.Sprintf("High volume bullish (%.0f vs avg %.0f)", quote.Volume, ind.VolumeSMA))
		} else {
			sell++
			reasons = append(reasons, fmt.Sprintf("High volume bearish (%.0f vs avg %.0f)", quote.Volume, ind.VolumeSMA))
		}
	}

	// OBV 代理：以收开对比累计量能，观察近几根的净流向
	if len(bars) >= obvLookback {
		window := bars[len(bars)-obvLookback:]
		obv := make([]float64, 0, len(window))
		var acc float64
		for _, b := range window {
			if b.Close > b.Open {
				acc += b.Volume
			} else if b.Close < b.Open {
				acc -= b.Volume
			}
			obv = append(obv, acc)
		}

		trend := obv[len(obv)-1] - obv[len(obv)-5]
		if trend > 0 && quote.ChangePercent > 0 {
			buy++
			reasons = append(reasons, "Positive volume accumulation trend")
		} else if trend < 0 && quote.ChangePercent < 0 {
			sell++
			reasons = append(reasons, "Negative volume distribution trend")
		}
	}

	// 量价背离提示，仅作为理由不投票
	if ind.VolumeSMA > 0 {
		ratio := quote.Volume / ind.VolumeSMA
		if quote.ChangePercent > 1 && ratio < 0.8 {
			reasons = append(reasons, "Caution: Price rise on low volume")
		} else if quote.ChangePercent < -1 && ratio < 0.8 {
			reasons = append(reasons, "Caution: Price fall on low volume")
		}
	}

	switch {
	case buy > 0:
		return verdict(s.Name(), buy, 0, 50, 12, 75, reasons, 30, "")
	case sell > 0:
		return verdict(s.Name(), 0, sell, 50, 12, 75, reasons, 30, "")
	default:
		return model.StrategyVerdict{
			Strategy:   s.Name(),
			Direction:  model.DirectionHold,
			Confidence: 30,
			Reasons:    []string{"Volume analysis neutral"},
		}
	}
}
