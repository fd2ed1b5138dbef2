package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoteReader struct {
	quotes map[string]model.Quote
}

func (s *stubQuoteReader) LastQuote(symbol string) (model.Quote, bool) {
	q, ok := s.quotes[symbol]
	return q, ok
}

func TestGatewayFeedGetQuote(t *testing.T) {
	reader := &stubQuoteReader{quotes: map[string]model.Quote{
		"RELIANCE": {Symbol: "RELIANCE", Price: 2500},
	}}
	feed := NewGatewayFeed(reader, nil)

	q, err := feed.GetQuote(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.InDelta(t, 2500, q.Price, 1e-9)

	_, err = feed.GetQuote(context.Background(), "TCS")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = feed.GetQuote(ctx, "RELIANCE")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHistoryClientGetBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RELIANCE", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5m", r.URL.Query().Get("interval"))
		// 故意乱序返回，客户端必须按时间升序整理
		w.Write([]byte(`{"symbol":"RELIANCE","bars":[
			{"ts":1767606300000,"open":101,"high":102,"low":100,"close":101.5,"volume":900},
			{"ts":1767606000000,"open":100,"high":101,"low":99,"close":101,"volume":1200}
		]}`))
	}))
	defer srv.Close()

	client := NewHistoryClient(srv.URL, nil)
	bars, err := client.GetBars(context.Background(), "RELIANCE", "5m", 2)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.InDelta(t, 100, bars[0].Open, 1e-9)
	assert.InDelta(t, 101.5, bars[1].Close, 1e-9)
	assert.Equal(t, time.UnixMilli(1767606000000), bars[0].Timestamp)
}

func TestHistoryClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"symbol":"TCS","bars":[]}`))
	}))
	defer srv.Close()

	client := NewHistoryClient(srv.URL, nil)
	bars, err := client.GetBars(context.Background(), "TCS", "5m", 10)
	require.NoError(t, err)

	assert.Empty(t, bars)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestHistoryClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHistoryClient(srv.URL, nil)
	_, err := client.GetBars(context.Background(), "BAD", "5m", 10)

	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
