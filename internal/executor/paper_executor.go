package executor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/portfolio"
	"equity-algo-trader/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 订单拒绝原因
const (
	rejectNoQuote          = "no_quote"
	rejectStaleQuote       = "stale_quote"
	rejectInsufficientCash = "insufficient_cash"
)

// TradeHandler 在每次平仓记录产生时回调，用于落库和推送
type TradeHandler func(record model.TradeRecord)

// PaperExecutor 是模拟撮合引擎：市价单按最新行情加滑点成交，
// 限价/止损单挂起等待行情触发。所有资金和持仓变更都走共享账本。
type PaperExecutor struct {
	cfg    *service.ExecutionConfig
	ledger *portfolio.Ledger
	quotes QuoteSource
	logger *zap.Logger

	mu      sync.Mutex
	orders  map[string]*model.Order
	pending []string // 未到终态的订单 ID，按提交顺序

	tradeHandler TradeHandler
}

// NewPaperExecutor 构造模拟执行器
func NewPaperExecutor(cfg *service.ExecutionConfig, ledger *portfolio.Ledger, quotes QuoteSource, logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{
		cfg:    cfg,
		ledger: ledger,
		quotes: quotes,
		logger: logger,
		orders: make(map[string]*model.Order),
	}
}

// SetTradeHandler 注册平仓记录回调，必须在启动前调用
func (e *PaperExecutor) SetTradeHandler(h TradeHandler) {
	e.tradeHandler = h
}

// SubmitOrder 受理下单请求并立即尝试撮合一次。
// 请求本身非法时返回 error；行情或资金不满足时订单落为 REJECTED，不返回 error。
func (e *PaperExecutor) SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if req.Symbol == "" || req.Quantity <= 0 {
		return nil, fmt.Errorf("invalid order request: symbol=%q quantity=%d", req.Symbol, req.Quantity)
	}
	if req.Type == model.OrderLimit && req.LimitPrice <= 0 {
		return nil, fmt.Errorf("limit order requires a positive limit price")
	}
	if req.Type == model.OrderStop && req.StopPrice <= 0 {
		return nil, fmt.Errorf("stop order requires a positive stop price")
	}

	order := &model.Order{
		ID:         uuid.NewString()[:8],
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Status:     model.OrderPending,
		CreatedAt:  time.Now(),
	}

	e.mu.Lock()
	e.orders[order.ID] = order
	e.pending = append(e.pending, order.ID)
	records := e.tryExecute(ctx, order, true)

	if e.logger != nil {
		e.logger.Info("Order submitted",
			zap.String("id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.String("type", string(order.Type)),
			zap.Int64("quantity", order.Quantity),
			zap.String("status", string(order.Status)),
			zap.String("reason", order.Reason))
	}

	cp := *order
	e.mu.Unlock()

	e.emitTrades(records)
	return &cp, nil
}

// tryExecute 按订单类型尝试撮合一次并返回产生的平仓记录，调用方必须持锁。
// atSubmit 为 true 时行情缺失/过期直接拒单，否则保持挂起等待下一轮。
func (e *PaperExecutor) tryExecute(ctx context.Context, order *model.Order, atSubmit bool) []model.TradeRecord {
	if order.Status.Terminal() {
		return nil
	}

	quote, ok := e.quotes.LastQuote(order.Symbol)
	if !ok {
		if atSubmit {
			e.reject(order, rejectNoQuote, "no quote available for "+order.Symbol)
		}
		return nil
	}
	if time.Since(quote.Timestamp) > e.cfg.QuoteStaleness {
		if atSubmit {
			e.reject(order, rejectStaleQuote,
				fmt.Sprintf("quote age %s exceeds %s", time.Since(quote.Timestamp).Round(time.Second), e.cfg.QuoteStaleness))
		}
		return nil
	}

	var fillPrice float64
	switch order.Type {
	case model.OrderMarket:
		fillPrice = e.slippagePrice(quote.Price, order.Side)

	case model.OrderLimit:
		// 买单：市场价跌到限价以下成交；卖单：涨到限价以上成交，都按限价成交
		if order.Side == model.OrderBuy && quote.Price <= order.LimitPrice {
			fillPrice = order.LimitPrice
		} else if order.Side == model.OrderSell && quote.Price >= order.LimitPrice {
			fillPrice = order.LimitPrice
		} else {
			return nil // 未触及，保持挂起
		}

	case model.OrderStop:
		// 止损单触发后按市价逻辑成交
		if order.Side == model.OrderBuy && quote.Price >= order.StopPrice {
			fillPrice = e.slippagePrice(quote.Price, order.Side)
		} else if order.Side == model.OrderSell && quote.Price <= order.StopPrice {
			fillPrice = e.slippagePrice(quote.Price, order.Side)
		} else {
			return nil
		}

	default:
		e.reject(order, "unsupported_type", string(order.Type))
		return nil
	}

	return e.fill(ctx, order, order.Quantity-order.FilledQuantity, fillPrice, quote.Timestamp, "")
}

// fill 对订单的 qty 个单位按 price 成交并落账，返回产生的平仓记录。
// 记录只返回不回调：撮合锁内严禁触达外部收集器 (落库/推送都是网络 IO)。
// 上下文已取消时订单转为 CANCELLED，账本不发生任何变更。
func (e *PaperExecutor) fill(ctx context.Context, order *model.Order, qty int64, price float64, t time.Time, triggerReason string) []model.TradeRecord {
	if qty <= 0 || order.Status.Terminal() {
		return nil
	}

	notional := float64(qty) * price
	commission := math.Max(e.cfg.CommissionMin, e.cfg.CommissionRate*notional)

	if order.Side == model.OrderBuy && notional+commission > e.ledger.Cash() {
		e.reject(order, rejectInsufficientCash,
			fmt.Sprintf("need %.2f, cash %.2f", notional+commission, e.ledger.Cash()))
		return nil
	}

	// 成交落账前的最后检查点：取消后账本必须保持原状
	if ctx.Err() != nil {
		order.Status = model.OrderCancelled
		order.Reason = "context cancelled"
		e.dropPending(order.ID)
		return nil
	}

	records := e.ledger.Apply(portfolio.Fill{
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      qty,
		Price:         price,
		Commission:    commission,
		StopLoss:      order.StopLoss,
		TakeProfit:    order.TakeProfit,
		Time:          t,
		TriggerReason: triggerReason,
	})

	// 已成交均价按数量加权
	total := order.FilledPrice*float64(order.FilledQuantity) + notional
	order.FilledQuantity += qty
	order.FilledPrice = total / float64(order.FilledQuantity)
	order.Commission += commission
	order.FilledAt = t

	if order.FilledQuantity >= order.Quantity {
		order.Status = model.OrderFilled
		e.dropPending(order.ID)
	} else {
		order.Status = model.OrderPartial
	}

	if e.logger != nil {
		e.logger.Info("Order filled",
			zap.String("id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Int64("quantity", qty),
			zap.Float64("price", price),
			zap.Float64("commission", commission),
			zap.String("status", string(order.Status)))
	}

	return records
}

// emitTrades 在锁外回调平仓记录，处理器可以安全地阻塞或回查执行器
func (e *PaperExecutor) emitTrades(records []model.TradeRecord) {
	if e.tradeHandler == nil {
		return
	}
	for _, r := range records {
		e.tradeHandler(r)
	}
}

// slippagePrice 市价成交价格：买单向上滑点，卖单向下滑点
func (e *PaperExecutor) slippagePrice(price float64, side model.OrderSide) float64 {
	if side == model.OrderBuy {
		return price * (1 + e.cfg.Slippage)
	}
	return price * (1 - e.cfg.Slippage)
}

func (e *PaperExecutor) reject(order *model.Order, reason, detail string) {
	order.Status = model.OrderRejected
	order.Reason = reason
	e.dropPending(order.ID)

	if e.logger != nil {
		e.logger.Warn("Order rejected",
			zap.String("id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("reason", reason),
			zap.String("detail", detail))
	}
}

// CancelOrder 撤销挂起中的订单，终态订单不可撤销
func (e *PaperExecutor) CancelOrder(id string, reason string) (*model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("order %s already %s", id, order.Status)
	}

	order.Status = model.OrderCancelled
	if reason == "" {
		reason = "cancelled by caller"
	}
	order.Reason = reason
	e.dropPending(id)

	if e.logger != nil {
		e.logger.Info("Order cancelled", zap.String("id", id), zap.String("reason", reason))
	}

	cp := *order
	return &cp, nil
}

// ProcessPending 用最新行情对挂起中的 LIMIT / STOP 订单重新撮合
func (e *PaperExecutor) ProcessPending(ctx context.Context) {
	e.mu.Lock()

	// tryExecute 会修改 pending，遍历副本
	ids := make([]string, len(e.pending))
	copy(ids, e.pending)

	var records []model.TradeRecord
	for _, id := range ids {
		if order, ok := e.orders[id]; ok {
			records = append(records, e.tryExecute(ctx, order, false)...)
		}
	}
	e.mu.Unlock()

	e.emitTrades(records)
}

// MonitorPositions 刷新持仓标记价并检查止损/止盈触发。
// 触发后以市价立即平掉全部数量，平仓记录带上 "SL" / "TP" 原因。
func (e *PaperExecutor) MonitorPositions(ctx context.Context, quote model.Quote) {
	e.ledger.MarkPrice(quote.Symbol, quote.Price, quote.Timestamp)

	pos, ok := e.ledger.Position(quote.Symbol)
	if !ok {
		return
	}

	trigger := ""
	if pos.Side == model.PositionLong {
		if pos.StopLoss > 0 && quote.Price <= pos.StopLoss {
			trigger = "SL"
		} else if pos.TakeProfit > 0 && quote.Price >= pos.TakeProfit {
			trigger = "TP"
		}
	} else {
		if pos.StopLoss > 0 && quote.Price >= pos.StopLoss {
			trigger = "SL"
		} else if pos.TakeProfit > 0 && quote.Price <= pos.TakeProfit {
			trigger = "TP"
		}
	}
	if trigger == "" {
		return
	}

	closeSide := model.OrderSell
	if pos.Side == model.PositionShort {
		closeSide = model.OrderBuy
	}

	e.mu.Lock()

	order := &model.Order{
		ID:        uuid.NewString()[:8],
		Symbol:    pos.Symbol,
		Side:      closeSide,
		Type:      model.OrderMarket,
		Quantity:  pos.Quantity,
		Status:    model.OrderPending,
		CreatedAt: time.Now(),
	}
	e.orders[order.ID] = order
	e.pending = append(e.pending, order.ID)

	if e.logger != nil {
		e.logger.Info("Protective exit triggered",
			zap.String("symbol", pos.Symbol),
			zap.String("trigger", trigger),
			zap.Float64("price", quote.Price),
			zap.Float64("stop_loss", pos.StopLoss),
			zap.Float64("take_profit", pos.TakeProfit))
	}

	records := e.fill(ctx, order, order.Quantity, e.slippagePrice(quote.Price, closeSide), quote.Timestamp, trigger)
	e.mu.Unlock()

	e.emitTrades(records)
}

// GetOrder 返回订单的值拷贝
func (e *PaperExecutor) GetOrder(id string) (*model.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[id]
	if !ok {
		return nil, false
	}
	cp := *order
	return &cp, true
}

// OpenOrders 返回全部未到终态的订单，按提交顺序
func (e *PaperExecutor) OpenOrders() []*model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*model.Order, 0, len(e.pending))
	for _, id := range e.pending {
		if order, ok := e.orders[id]; ok {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out
}

// dropPending 将订单从挂起列表移除，调用方必须持锁
func (e *PaperExecutor) dropPending(id string) {
	for i, p := range e.pending {
		if p == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}
