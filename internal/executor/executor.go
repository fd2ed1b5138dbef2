package executor

import (
	"context"

	"equity-algo-trader/internal/model"
)

// QuoteSource 提供某标的的最新行情，由数据引擎实现
type QuoteSource interface {
	LastQuote(symbol string) (model.Quote, bool)
}

// Executor 是订单执行器的通用接口，模拟盘和实盘共用
type Executor interface {
	// 接收下单请求，立即尝试撮合，返回最终或中间状态的订单
	SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)

	// 撤销一个 PENDING / PARTIAL 状态的订单
	CancelOrder(id string, reason string) (*model.Order, error)

	// 对尚未成交的 LIMIT / STOP 订单按最新行情重新尝试撮合
	ProcessPending(ctx context.Context)

	// 检查持仓的止损/止盈是否被最新行情触发，触发则市价平仓
	MonitorPositions(ctx context.Context, quote model.Quote)

	// 查询订单
	GetOrder(id string) (*model.Order, bool)

	// 返回所有未到达终态的订单
	OpenOrders() []*model.Order
}
