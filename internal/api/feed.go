package api

import (
	"context"
	"fmt"

	"equity-algo-trader/internal/model"
)

// Feed 是策略层看到的行情数据源抽象：按需取最新行情和历史 K 线
type Feed interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetBars(ctx context.Context, symbol, interval string, lookback int) ([]model.Bar, error)
}

// QuoteReader 提供最新行情快照，由报价簿实现
type QuoteReader interface {
	LastQuote(symbol string) (model.Quote, bool)
}

// GatewayFeed 组合实时报价簿和 REST 历史接口，实现 Feed
type GatewayFeed struct {
	quotes  QuoteReader
	history *HistoryClient
}

func NewGatewayFeed(quotes QuoteReader, history *HistoryClient) *GatewayFeed {
	return &GatewayFeed{quotes: quotes, history: history}
}

// GetQuote 返回内存中的最新行情，尚无行情时返回错误
func (f *GatewayFeed) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}
	q, ok := f.quotes.LastQuote(symbol)
	if !ok {
		return model.Quote{}, fmt.Errorf("no quote available for %s", symbol)
	}
	return q, nil
}

// GetBars 通过历史接口回补 K 线
func (f *GatewayFeed) GetBars(ctx context.Context, symbol, interval string, lookback int) ([]model.Bar, error) {
	return f.history.GetBars(ctx, symbol, interval, lookback)
}
