package data

import (
	"testing"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

func quoteAt(symbol string, price, cumVolume float64, offset time.Duration) model.Quote {
	return model.Quote{Symbol: symbol, Price: price, Volume: cumVolume, Timestamp: base.Add(offset)}
}

func TestBarEngineAggregatesWithinInterval(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	e.ProcessQuote(quoteAt("RELIANCE", 100, 1000, 0))
	e.ProcessQuote(quoteAt("RELIANCE", 103, 1500, time.Minute))
	e.ProcessQuote(quoteAt("RELIANCE", 99, 2200, 2*time.Minute))

	// 周期未结束：没有已完成 K 线
	assert.Empty(t, e.Bars())
	select {
	case b := <-e.BarChannel():
		t.Fatalf("unexpected completed bar: %+v", b)
	default:
	}
}

func TestBarEngineEmitsCompletedBar(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	e.ProcessQuote(quoteAt("RELIANCE", 100, 1000, 0))
	e.ProcessQuote(quoteAt("RELIANCE", 105, 1800, time.Minute))
	e.ProcessQuote(quoteAt("RELIANCE", 98, 2000, 2*time.Minute))
	// 跨入下一个 5 分钟周期，上一根 K 线收盘
	e.ProcessQuote(quoteAt("RELIANCE", 101, 2500, 5*time.Minute))

	bars := e.Bars()
	require.Len(t, bars, 1)
	b := bars[0]
	assert.Equal(t, base, b.Timestamp)
	assert.InDelta(t, 100, b.Open, 1e-9)
	assert.InDelta(t, 105, b.High, 1e-9)
	assert.InDelta(t, 98, b.Low, 1e-9)
	assert.InDelta(t, 98, b.Close, 1e-9)
	// 成交量为累计值差分：首笔不计，800 + 200
	assert.InDelta(t, 1000, b.Volume, 1e-9)

	select {
	case emitted := <-e.BarChannel():
		assert.Equal(t, b, emitted)
	default:
		t.Fatal("completed bar was not emitted on channel")
	}
}

func TestBarEngineNewBarOpensAtPreviousClose(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	e.ProcessQuote(quoteAt("RELIANCE", 100, 1000, 0))
	e.ProcessQuote(quoteAt("RELIANCE", 104, 1200, 5*time.Minute))
	e.ProcessQuote(quoteAt("RELIANCE", 106, 1300, 10*time.Minute))

	bars := e.Bars()
	require.Len(t, bars, 2)
	assert.InDelta(t, bars[0].Close, bars[1].Open, 1e-9)
}

func TestBarEngineIgnoresForeignSymbols(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	_, ok := e.LastQuote("TCS")
	assert.False(t, ok)

	e.ProcessQuote(quoteAt("RELIANCE", 100, 1000, 0))
	q, ok := e.LastQuote("RELIANCE")
	require.True(t, ok)
	assert.InDelta(t, 100, q.Price, 1e-9)

	_, ok = e.LastQuote("TCS")
	assert.False(t, ok)
}

func TestBarEngineBootstrapTrimsHistory(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	seed := make([]model.Bar, maxBarHistory+50)
	for i := range seed {
		seed[i] = model.Bar{Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Close: float64(i)}
	}
	e.Bootstrap(seed)

	bars := e.Bars()
	require.Len(t, bars, maxBarHistory)
	assert.InDelta(t, float64(len(seed)-1), bars[len(bars)-1].Close, 1e-9)
}

func TestBarEngineVolumeDayRollover(t *testing.T) {
	e := NewBarEngine("RELIANCE", 5*time.Minute, nil)

	e.ProcessQuote(quoteAt("RELIANCE", 100, 500000, 0))
	// 累计成交量回落 (日切)：差分为负时不计入，不产生负量
	e.ProcessQuote(quoteAt("RELIANCE", 100, 100, time.Minute))
	e.ProcessQuote(quoteAt("RELIANCE", 100, 400, 2*time.Minute))
	e.ProcessQuote(quoteAt("RELIANCE", 100, 500, 5*time.Minute))

	bars := e.Bars()
	require.Len(t, bars, 1)
	assert.InDelta(t, 300, bars[0].Volume, 1e-9)
}

func TestQuoteBookTracksLatestPerSymbol(t *testing.T) {
	book := NewQuoteBook()

	_, ok := book.LastQuote("RELIANCE")
	assert.False(t, ok)

	book.Update(quoteAt("RELIANCE", 100, 1000, 0))
	book.Update(quoteAt("TCS", 3500, 400, 0))
	book.Update(quoteAt("RELIANCE", 101, 1100, time.Minute))

	q, ok := book.LastQuote("RELIANCE")
	require.True(t, ok)
	assert.InDelta(t, 101, q.Price, 1e-9)

	q, ok = book.LastQuote("TCS")
	require.True(t, ok)
	assert.InDelta(t, 3500, q.Price, 1e-9)
}
