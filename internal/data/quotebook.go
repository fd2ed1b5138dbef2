package data

import (
	"sync"

	"equity-algo-trader/internal/model"
)

// QuoteBook 汇总全部标的的最新行情，供执行层跨标的查价。
// 每个 BarEngine 只认自己的标的，撮合引擎需要一个全局视图。
type QuoteBook struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
}

func NewQuoteBook() *QuoteBook {
	return &QuoteBook{quotes: make(map[string]model.Quote)}
}

// Update 记录一笔最新行情
func (b *QuoteBook) Update(q model.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[q.Symbol] = q
}

// LastQuote 实现执行层的 QuoteSource 接口
func (b *QuoteBook) LastQuote(symbol string) (model.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	return q, ok
}
