package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction 定义了策略判定和最终信号的方向
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// PositionSide 定义了持仓方向
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// StrategyVerdict 是单个子策略对当前行情的判定结果，产出后不再修改
type StrategyVerdict struct {
	Strategy   string    // 策略标识，例如 "trend_following"
	Direction  Direction // BUY / SELL / HOLD
	Confidence float64   // 0-100
	Reasons    []string  // 人类可读的判定依据，顺序固定
}

// Signal 是融合引擎输出的最终交易信号
type Signal struct {
	Symbol     string
	Direction  Direction
	Confidence float64      // 0-100
	Reasons    []string     // 最多保留 10 条，按策略权重排序
	Indicators IndicatorSet // 生成信号时使用的指标快照
	Entry      float64      // 信号生成时的参考入场价
	// 价格目标，0 表示未设置 (HOLD 信号不带目标)
	PriceTarget float64
	StopLoss    float64
	RiskReward  float64
	CreatedAt   time.Time
}

func (s Signal) String() string {
	return fmt.Sprintf("SIGNAL [%s | %s] conf=%.1f @ %.2f | TP: %.2f | SL: %.2f | %s",
		s.Symbol, s.Direction, s.Confidence, s.Entry, s.PriceTarget, s.StopLoss,
		strings.Join(firstN(s.Reasons, 3), "; "))
}

func firstN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}

// OrderSide 订单买卖方向
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// OrderType 订单类型
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

// OrderStatus 订单状态机的全部状态。
// PENDING -> {FILLED, PARTIAL, CANCELLED, REJECTED}；
// PARTIAL 仍可转移到 FILLED 或 CANCELLED；其余为终态。
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPartial   OrderStatus = "PARTIAL"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRejected  OrderStatus = "REJECTED"
)

// Terminal 返回该状态是否不允许再发生转移
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// OrderRequest 是风控层输出给执行层的下单请求
type OrderRequest struct {
	Symbol     string
	Side       OrderSide
	Type       OrderType
	Quantity   int64
	LimitPrice float64 // LIMIT 单使用
	StopPrice  float64 // STOP 单使用
	StopLoss   float64 // 开仓后挂载到持仓上的止损价，0 表示不设置
	TakeProfit float64 // 止盈价，0 表示不设置
}

// Order 由执行引擎独占持有，状态只通过其状态机变更
type Order struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Quantity       int64
	LimitPrice     float64
	StopPrice      float64
	StopLoss       float64
	TakeProfit     float64
	Status         OrderStatus
	FilledQuantity int64
	FilledPrice    float64 // 已成交部分的平均价格
	Commission     float64
	Reason         string // REJECTED / CANCELLED 时的原因说明
	CreatedAt      time.Time
	FilledAt       time.Time
}

func (o Order) String() string {
	return fmt.Sprintf("ORDER [%s | %s %s %s] qty=%d filled=%d @ %.2f status=%s",
		o.ID, o.Side, o.Type, o.Symbol, o.Quantity, o.FilledQuantity, o.FilledPrice, o.Status)
}

// Position 代表某个标的当前唯一的一笔持仓。
// 核心不变量：同一 Symbol 任意时刻最多存在一条 Position。
type Position struct {
	Symbol        string
	Side          PositionSide
	Quantity      int64 // 恒为正
	AvgPrice      float64
	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64 // 该持仓历次部分平仓累计的已实现盈亏
	StopLoss      float64 // 0 表示未设置
	TakeProfit    float64
	OpenedAt      time.Time
	LastUpdate    time.Time
}

// TradeRecord 记录一次完整或部分的平仓事件
type TradeRecord struct {
	ID            string
	Symbol        string
	Side          PositionSide // 被平掉的持仓方向
	EntryPrice    float64
	ExitPrice     float64
	Quantity      int64
	RealizedPnL   float64
	Commission    float64 // 平仓订单分摊的手续费
	EntryTime     time.Time
	ExitTime      time.Time
	TriggerReason string // "Signal" / "SL" / "TP" / "Flip"
}

func (t TradeRecord) String() string {
	return fmt.Sprintf("TRADE [%s %s] %d @ %.2f -> %.2f PnL: %.2f (%s)",
		t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice, t.RealizedPnL, t.TriggerReason)
}
