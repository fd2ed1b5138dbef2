package ta

import (
	"fmt"
	"math"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"
)

// Calculator 负责从 K 线序列计算全部技术指标。
// 无内部状态，Compute 是纯函数，每个评估周期重新计算一份 IndicatorSet。
type Calculator struct {
	cfg    *service.IndicatorConfig
	logger *zap.Logger
}

// NewCalculator 初始化技术指标计算器
func NewCalculator(cfg *service.IndicatorConfig, logger *zap.Logger) *Calculator {
	return &Calculator{cfg: cfg, logger: logger}
}

// Compute 计算 bars 上的全部指标。少于 MinBars 根返回 ErrInsufficientData。
func (c *Calculator) Compute(bars []model.Bar) (*model.IndicatorSet, error) {
	if len(bars) < c.cfg.MinBars {
		return nil, fmt.Errorf("%w: have %d bars, need %d", model.ErrInsufficientData, len(bars), c.cfg.MinBars)
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	rsi := talib.Rsi(closes, c.cfg.RSIPeriod)
	macd, macdSignal, macdHist := talib.Macd(closes, c.cfg.MACDFast, c.cfg.MACDSlow, c.cfg.MACDSignal)
	bbUp, bbMid, bbDn := talib.BBands(closes, c.cfg.BBPeriod, c.cfg.BBStd, c.cfg.BBStd, talib.SMA)
	smaShort := talib.Sma(closes, c.cfg.SMAShort)
	smaLong := talib.Sma(closes, c.cfg.SMALong)
	emaFast := talib.Ema(closes, c.cfg.EMAFast)
	emaSlow := talib.Ema(closes, c.cfg.EMASlow)
	volumeSMA := talib.Sma(volumes, c.cfg.VolumeSMAPeriod)
	adx := talib.Adx(highs, lows, closes, c.cfg.ADXPeriod)
	stochK, stochD := talib.Stoch(highs, lows, closes,
		c.cfg.StochFastK, c.cfg.StochSlowK, talib.SMA, c.cfg.StochSlowD, talib.SMA)
	willR := talib.WillR(highs, lows, closes, c.cfg.WilliamsRPeriod)
	cci := talib.Cci(highs, lows, closes, c.cfg.CCIPeriod)
	mom := talib.Mom(closes, c.cfg.MomentumPeriod)

	lastClose := closes[len(closes)-1]
	lastVolume := volumes[len(volumes)-1]

	// 零波动窗口下底层 RSI 退化为 0，与连续下跌不可区分，显式归为中性
	rsiValue := neutral(last(rsi), 50)
	if flatWindow(closes, c.cfg.RSIPeriod+1) {
		rsiValue = 50
	}

	// 数值兜底：零波动区间会在 RSI/CCI/Stoch/W%R 中产生 NaN/Inf，
	// 一律替换为中性值，避免污染融合得分
	ind := &model.IndicatorSet{
		RSI:        rsiValue,
		MACD:       neutral(last(macd), 0),
		MACDSignal: neutral(last(macdSignal), 0),
		MACDHist:   neutral(last(macdHist), 0),
		BBUpper:    neutral(last(bbUp), lastClose),
		BBMiddle:   neutral(last(bbMid), lastClose),
		BBLower:    neutral(last(bbDn), lastClose),
		SMAShort:   neutral(last(smaShort), lastClose),
		SMALong:    neutral(last(smaLong), lastClose),
		EMAFast:    neutral(last(emaFast), lastClose),
		EMASlow:    neutral(last(emaSlow), lastClose),
		VolumeSMA:  neutral(last(volumeSMA), lastVolume),
		ADX:        neutral(last(adx), 25),
		StochK:     neutral(last(stochK), 50),
		StochD:     neutral(last(stochD), 50),
		WilliamsR:  neutral(last(willR), -50),
		CCI:        neutral(last(cci), 0),
		Momentum:   neutral(last(mom), 0),
	}

	if c.logger != nil {
		c.logger.Debug("Indicators computed",
			zap.Int("bars", len(bars)),
			zap.Float64("rsi", ind.RSI),
			zap.Float64("adx", ind.ADX),
			zap.Float64("macd_hist", ind.MACDHist))
	}

	return ind, nil
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

func neutral(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// flatWindow 判断最近 n 个值是否完全相等
func flatWindow(xs []float64, n int) bool {
	if n > len(xs) {
		n = len(xs)
	}
	window := xs[len(xs)-n:]
	for _, v := range window[1:] {
		if v != window[0] {
			return false
		}
	}
	return true
}
