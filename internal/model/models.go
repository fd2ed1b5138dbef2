package model

import "time"

// Quote 代表某个交易标的的最新行情快照
type Quote struct {
	Symbol        string
	Price         float64 // 最新成交价
	Open          float64 // 当日开盘价
	High          float64
	Low           float64
	Volume        float64 // 当日累计成交量
	ChangePercent float64 // 当日涨跌幅 (%)
	Timestamp     time.Time
}

// Bar 代表一根已完成的 OHLCV K 线
type Bar struct {
	Timestamp time.Time // K 线起始时间，序列内严格递增
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// IndicatorSet 存储一次计算得到的全部技术指标最新值。
// 每个评估周期重新计算一份，产出后不再修改。
type IndicatorSet struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	SMAShort   float64 // 默认 SMA20
	SMALong    float64 // 默认 SMA50
	EMAFast    float64 // 默认 EMA12
	EMASlow    float64 // 默认 EMA26
	VolumeSMA  float64
	ADX        float64
	StochK     float64
	StochD     float64
	WilliamsR  float64
	CCI        float64
	Momentum   float64
}
