package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// historyResponse 历史 K 线接口的响应结构
type historyResponse struct {
	Symbol string `json:"symbol"`
	Bars   []struct {
		Timestamp int64   `json:"ts"` // K 线起始时间 (毫秒)
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		Close     float64 `json:"close"`
		Volume    float64 `json:"volume"`
	} `json:"bars"`
}

// HistoryClient 通过 REST 接口回补历史 K 线，带限流和指数退避重试
type HistoryClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewHistoryClient 初始化历史行情客户端。
// 网关限制约 5 QPS，限流器留出余量。
func NewHistoryClient(baseURL string, logger *zap.Logger) *HistoryClient {
	return &HistoryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		logger:     logger,
	}
}

// GetBars 拉取指定标的最近 limit 根 K 线，按时间升序返回。
// 网络错误和 5xx 按指数退避重试，4xx 视为永久失败。
func (h *HistoryClient) GetBars(ctx context.Context, symbol, interval string, limit int) ([]model.Bar, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/history?%s", h.baseURL, url.Values{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}.Encode())

	var resp historyResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		httpResp, err := h.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("history request rejected: %s", httpResp.Status))
		}
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("history request failed: %s", httpResp.Status)
		}

		return json.NewDecoder(httpResp.Body).Decode(&resp)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		bars = append(bars, model.Bar{
			Timestamp: time.UnixMilli(b.Timestamp),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if h.logger != nil {
		h.logger.Info("History backfill completed",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("bars", len(bars)))
	}

	return bars, nil
}
