package portfolio

import (
	"sync"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/google/uuid"
)

// View 是账本的一致性快照，供风控层在不持锁的情况下做仓位决策
type View struct {
	Cash           float64
	PortfolioValue float64
	TotalRealized  float64
	TradeCount     int
	WinningTrades  int
	Positions      map[string]model.Position
}

func (v View) HasPosition(symbol string) bool {
	_, ok := v.Positions[symbol]
	return ok
}

func (v View) OpenPositions() int { return len(v.Positions) }

// Fill 描述一笔已确定价格和数量的成交，由执行引擎构造
type Fill struct {
	Symbol        string
	Side          model.OrderSide
	Quantity      int64
	Price         float64
	Commission    float64
	StopLoss      float64 // 开仓时挂载到持仓，0 表示不设置
	TakeProfit    float64
	Time          time.Time
	TriggerReason string // 平仓记录的触发原因，空则记为 "Signal"
}

// Ledger 是现金与持仓的唯一事实来源。
// 单写者约束：只有执行引擎调用 Apply / MarkPrice，其余组件只读快照。
type Ledger struct {
	mu             sync.RWMutex
	initialCapital float64
	cash           float64
	positions      map[string]*model.Position
	totalRealized  float64
	tradeCount     int
	winningTrades  int
}

// NewLedger 以初始资金创建账本
func NewLedger(initialCapital float64) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*model.Position),
	}
}

func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

func (l *Ledger) InitialCapital() float64 { return l.initialCapital }

// Position 返回某标的持仓的值拷贝
func (l *Ledger) Position(symbol string) (model.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Snapshot 返回一致性快照。持仓市值按方向记正负：
// 多头贡献 +qty*price，空头贡献 -qty*price (开空收到的现金已计入 cash)。
func (l *Ledger) Snapshot() View {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make(map[string]model.Position, len(l.positions))
	value := l.cash
	for sym, p := range l.positions {
		positions[sym] = *p
		price := p.CurrentPrice
		if price == 0 {
			price = p.AvgPrice
		}
		if p.Side == model.PositionLong {
			value += float64(p.Quantity) * price
		} else {
			value -= float64(p.Quantity) * price
		}
	}

	return View{
		Cash:           l.cash,
		PortfolioValue: value,
		TotalRealized:  l.totalRealized,
		TradeCount:     l.tradeCount,
		WinningTrades:  l.winningTrades,
		Positions:      positions,
	}
}

// MarkPrice 用最新价刷新持仓现价和浮动盈亏
func (l *Ledger) MarkPrice(symbol string, price float64, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		return
	}
	p.CurrentPrice = price
	if p.Side == model.PositionLong {
		p.UnrealizedPnL = (price - p.AvgPrice) * float64(p.Quantity)
	} else {
		p.UnrealizedPnL = (p.AvgPrice - price) * float64(p.Quantity)
	}
	p.LastUpdate = t
}

// Apply 将一笔成交原子地落到账本：现金、持仓、平仓统计一次完成。
// 返回本次成交触发的平仓记录 (0 条、1 条，翻仓时也是 1 条)。
func (l *Ledger) Apply(f Fill) []model.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 现金变动：买入付出名义金额+手续费，卖出收到名义金额-手续费
	notional := float64(f.Quantity) * f.Price
	if f.Side == model.OrderBuy {
		l.cash -= notional + f.Commission
	} else {
		l.cash += notional - f.Commission
	}

	fillSide := model.PositionLong
	if f.Side == model.OrderSell {
		fillSide = model.PositionShort
	}

	pos, exists := l.positions[f.Symbol]
	if !exists {
		// 首笔成交：建仓
		l.positions[f.Symbol] = &model.Position{
			Symbol:       f.Symbol,
			Side:         fillSide,
			Quantity:     f.Quantity,
			AvgPrice:     f.Price,
			CurrentPrice: f.Price,
			StopLoss:     f.StopLoss,
			TakeProfit:   f.TakeProfit,
			OpenedAt:     f.Time,
			LastUpdate:   f.Time,
		}
		return nil
	}

	if pos.Side == fillSide {
		// 同向加仓：数量加总，均价按成交量加权
		total := float64(pos.Quantity)*pos.AvgPrice + notional
		pos.Quantity += f.Quantity
		pos.AvgPrice = total / float64(pos.Quantity)
		pos.CurrentPrice = f.Price
		pos.LastUpdate = f.Time
		return nil
	}

	// 反向成交：先平旧仓，数量有剩余则翻向开新仓
	closeQty := f.Quantity
	flip := false
	if closeQty > pos.Quantity {
		closeQty = pos.Quantity
		flip = true
	}

	record := l.closeQuantity(pos, f, closeQty)

	if pos.Quantity == 0 {
		delete(l.positions, f.Symbol)
	}

	if flip {
		remaining := f.Quantity - closeQty
		l.positions[f.Symbol] = &model.Position{
			Symbol:       f.Symbol,
			Side:         fillSide,
			Quantity:     remaining,
			AvgPrice:     f.Price,
			CurrentPrice: f.Price,
			StopLoss:     f.StopLoss,
			TakeProfit:   f.TakeProfit,
			OpenedAt:     f.Time,
			LastUpdate:   f.Time,
		}
	}

	return []model.TradeRecord{record}
}

// closeQuantity 平掉 pos 中的 closeQty 个单位并生成平仓记录。
// 已实现盈亏只含价差，手续费按平仓数量占比分摊记录在 TradeRecord 上，不重复入账。
func (l *Ledger) closeQuantity(pos *model.Position, f Fill, closeQty int64) model.TradeRecord {
	var pnl float64
	if pos.Side == model.PositionLong {
		pnl = (f.Price - pos.AvgPrice) * float64(closeQty)
	} else {
		pnl = (pos.AvgPrice - f.Price) * float64(closeQty)
	}

	pos.Quantity -= closeQty
	pos.RealizedPnL += pnl
	pos.CurrentPrice = f.Price
	pos.LastUpdate = f.Time

	l.totalRealized += pnl
	l.tradeCount++
	if pnl > 0 {
		l.winningTrades++
	}

	reason := f.TriggerReason
	if reason == "" {
		reason = "Signal"
	}

	return model.TradeRecord{
		ID:            uuid.NewString()[:8],
		Symbol:        pos.Symbol,
		Side:          pos.Side,
		EntryPrice:    pos.AvgPrice,
		ExitPrice:     f.Price,
		Quantity:      closeQty,
		RealizedPnL:   pnl,
		Commission:    f.Commission * float64(closeQty) / float64(f.Quantity),
		EntryTime:     pos.OpenedAt,
		ExitTime:      f.Time,
		TriggerReason: reason,
	}
}
