package data

import (
	"context"
	"math"
	"sync"
	"time"

	"equity-algo-trader/internal/model"

	"go.uber.org/zap"
)

// 滚动保留的已完成 K 线数量上限
const maxBarHistory = 500

// BarEngine 接收某个标的的行情快照，聚合为固定周期的 K 线，
// 并维护策略层所需的滚动历史。每个标的一个实例。
type BarEngine struct {
	symbol   string
	interval time.Duration
	logger   *zap.Logger

	mu         sync.RWMutex
	bars       []model.Bar
	current    model.Bar
	hasCurrent bool
	lastQuote  model.Quote
	hasQuote   bool
	prevVolume float64 // 上一笔行情的当日累计成交量，用于计算增量

	barCh chan model.Bar
}

// NewBarEngine 创建指定标的和周期的 K 线引擎
func NewBarEngine(symbol string, interval time.Duration, logger *zap.Logger) *BarEngine {
	return &BarEngine{
		symbol:   symbol,
		interval: interval,
		logger:   logger,
		barCh:    make(chan model.Bar, 16),
	}
}

// Bootstrap 用历史 K 线预填充滚动窗口，启动回补时调用一次。
// 输入必须按时间升序排列。
func (e *BarEngine) Bootstrap(bars []model.Bar) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bars = append(e.bars[:0], bars...)
	if len(e.bars) > maxBarHistory {
		e.bars = e.bars[len(e.bars)-maxBarHistory:]
	}

	if e.logger != nil {
		e.logger.Info("Bar history bootstrapped",
			zap.String("symbol", e.symbol),
			zap.Int("bars", len(e.bars)))
	}
}

// Run 消费行情流直到通道关闭或上下文取消
func (e *BarEngine) Run(ctx context.Context, quotes <-chan model.Quote) {
	if e.logger != nil {
		e.logger.Info("Bar engine started",
			zap.String("symbol", e.symbol),
			zap.Duration("interval", e.interval))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			if q.Symbol != e.symbol {
				continue
			}
			e.ProcessQuote(q)
		}
	}
}

// ProcessQuote 将一笔行情聚合到当前 K 线。
// 行情跨入新周期时，上一根 K 线落入历史并发往输出通道。
func (e *BarEngine) ProcessQuote(q model.Quote) {
	e.mu.Lock()
	defer e.mu.Unlock()

	barStart := q.Timestamp.Truncate(e.interval)

	// 成交量按当日累计值差分，日切或数据回退时退化为当笔累计值
	volumeDelta := q.Volume - e.prevVolume
	if !e.hasQuote || volumeDelta < 0 {
		volumeDelta = 0
	}
	e.prevVolume = q.Volume
	e.lastQuote = q
	e.hasQuote = true

	if e.hasCurrent && barStart.After(e.current.Timestamp) {
		completed := e.current
		e.appendBar(completed)

		select {
		case e.barCh <- completed:
		default:
			if e.logger != nil {
				e.logger.Warn("Bar channel full, dropping completed bar",
					zap.String("symbol", e.symbol),
					zap.Time("bar_start", completed.Timestamp))
			}
		}

		// 新 K 线以上一根的收盘价开盘
		e.current = model.Bar{
			Timestamp: barStart,
			Open:      completed.Close,
			High:      q.Price,
			Low:       q.Price,
			Close:     q.Price,
		}
	}

	if !e.hasCurrent {
		e.current = model.Bar{
			Timestamp: barStart,
			Open:      q.Price,
			High:      q.Price,
			Low:       q.Price,
			Close:     q.Price,
		}
		e.hasCurrent = true
	}

	e.current.Close = q.Price
	e.current.High = math.Max(e.current.High, q.Price)
	e.current.Low = math.Min(e.current.Low, q.Price)
	e.current.Volume += volumeDelta
}

// appendBar 落入历史并裁剪窗口，调用方必须持锁
func (e *BarEngine) appendBar(b model.Bar) {
	e.bars = append(e.bars, b)
	if len(e.bars) > maxBarHistory {
		e.bars = e.bars[len(e.bars)-maxBarHistory:]
	}
}

// Bars 返回已完成 K 线历史的副本，按时间升序
func (e *BarEngine) Bars() []model.Bar {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Bar, len(e.bars))
	copy(out, e.bars)
	return out
}

// LastQuote 返回最新行情快照，实现执行层的 QuoteSource 接口
func (e *BarEngine) LastQuote(symbol string) (model.Quote, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hasQuote || symbol != e.symbol {
		return model.Quote{}, false
	}
	return e.lastQuote, true
}

// BarChannel 返回已完成 K 线的输出通道，每根 K 线收盘时发送一次
func (e *BarEngine) BarChannel() <-chan model.Bar {
	return e.barCh
}
