package api

import (
	"encoding/json"
	"net/url"
	"time"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsEnvelope 行情网关的通用消息结构
type wsEnvelope struct {
	Arg struct {
		Channel string `json:"channel"`
		Symbol  string `json:"symbol"`
	} `json:"arg"`
	Data  json.RawMessage `json:"data"` // 延迟解析，按频道分发
	Event string          `json:"event"`
}

// wsQuoteData 适配 quotes 频道的数据结构，数值均为字符串
type wsQuoteData struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"last"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Volume        string `json:"vol"` // 当日累计成交量
	ChangePercent string `json:"chgPct"`
	Timestamp     string `json:"ts"` // 毫秒字符串
}

// Connector 维护到行情网关的 WebSocket 连接，将行情推入内部通道
type Connector struct {
	wsConn       *websocket.Conn
	wsURL        string
	symbols      map[string]bool
	quoteChannel chan model.Quote
}

// NewConnector 初始化连接器，symbols 为需要订阅的标的列表
func NewConnector(wsURL string, symbols []string) *Connector {
	subscribed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		subscribed[s] = true
	}

	service.Logger.Info("Connector initialized", zap.Strings("Symbols", symbols))

	return &Connector{
		wsURL:        wsURL,
		symbols:      subscribed,
		quoteChannel: make(chan model.Quote, 2048),
	}
}

// Start 建立连接、发送订阅并进入读循环，连接断开后自动重连
func (c *Connector) Start() {
	for {
		if err := c.connectAndRead(); err != nil {
			service.Logger.Error("WS connection lost, reconnecting...", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

func (c *Connector) connectAndRead() error {
	service.Logger.Info("Starting quote stream connection...", zap.String("URL", c.wsURL))

	u, err := url.Parse(c.wsURL)
	if err != nil {
		service.Logger.Fatal("Invalid WS URL", zap.Error(err))
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	c.wsConn = conn
	defer c.wsConn.Close()

	var args []map[string]string
	for symbol := range c.symbols {
		args = append(args, map[string]string{"channel": "quotes", "symbol": symbol})
	}
	subscribeMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	}
	if err := c.wsConn.WriteJSON(subscribeMsg); err != nil {
		return err
	}
	service.Logger.Info("Subscribed to quote streams", zap.Int("count", len(args)))

	return c.readLoop()
}

// readLoop 持续读取行情消息并转换为内部 Quote
func (c *Connector) readLoop() error {
	for {
		_, message, err := c.wsConn.ReadMessage()
		if err != nil {
			return err
		}

		var resp wsEnvelope
		if err := json.Unmarshal(message, &resp); err != nil {
			continue
		}
		if resp.Event != "" {
			continue // 忽略订阅确认等事件消息
		}
		if resp.Arg.Channel != "quotes" || len(resp.Data) == 0 {
			continue
		}

		var quotes []wsQuoteData
		if err := json.Unmarshal(resp.Data, &quotes); err != nil {
			service.Logger.Error("Quote data unmarshal error", zap.Error(err))
			continue
		}

		for _, raw := range quotes {
			if !c.symbols[raw.Symbol] {
				continue
			}

			quote, err := c.toQuote(raw)
			if err != nil {
				continue
			}

			// select/default 防止慢消费者阻塞读循环
			select {
			case c.quoteChannel <- quote:
			default:
				service.Logger.Warn("Quote channel full! Dropping quote for", zap.String("Symbol", raw.Symbol))
			}
		}
	}
}

func (c *Connector) toQuote(raw wsQuoteData) (model.Quote, error) {
	price, err := service.StringToFloat(raw.LastPrice)
	if err != nil {
		return model.Quote{}, err
	}
	ts, err := service.StringToInt64(raw.Timestamp)
	if err != nil {
		return model.Quote{}, err
	}

	// 辅助字段解析失败不影响价格有效性
	open, _ := service.StringToFloat(raw.Open)
	high, _ := service.StringToFloat(raw.High)
	low, _ := service.StringToFloat(raw.Low)
	volume, _ := service.StringToFloat(raw.Volume)
	chg, _ := service.StringToFloat(raw.ChangePercent)

	return model.Quote{
		Symbol:        raw.Symbol,
		Price:         price,
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		ChangePercent: chg,
		Timestamp:     time.UnixMilli(ts),
	}, nil
}

// GetQuoteChannel 供数据引擎消费行情流
func (c *Connector) GetQuoteChannel() chan model.Quote {
	return c.quoteChannel
}
