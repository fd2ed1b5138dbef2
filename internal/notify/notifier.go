package notify

import "equity-algo-trader/internal/model"

// Notifier 将关键交易事件推送给外部渠道
type Notifier interface {
	SignalGenerated(sig model.Signal)
	TradeClosed(record model.TradeRecord)
}

// Noop 在未配置推送渠道时使用
type Noop struct{}

func (Noop) SignalGenerated(model.Signal)  {}
func (Noop) TradeClosed(model.TradeRecord) {}
