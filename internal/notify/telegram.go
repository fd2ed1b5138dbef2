package notify

import (
	"fmt"
	"strings"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier 将高置信度信号和平仓记录推送到 Telegram
type TelegramNotifier struct {
	bot           *tgbotapi.BotAPI
	chatID        int64
	minConfidence float64
}

// NewTelegramNotifier 初始化 Bot，Token 无效时返回错误
func NewTelegramNotifier(cfg *service.NotifyConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	service.Logger.Info("Telegram notifier ready", zap.String("bot", bot.Self.UserName))

	return &TelegramNotifier{
		bot:           bot,
		chatID:        cfg.TelegramChatID,
		minConfidence: cfg.MinConfidence,
	}, nil
}

// SignalGenerated 推送 BUY/SELL 信号，低置信度和 HOLD 信号不打扰
func (n *TelegramNotifier) SignalGenerated(sig model.Signal) {
	if sig.Direction == model.DirectionHold || sig.Confidence < n.minConfidence {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s %s* (conf %.0f%%)\n", sig.Symbol, sig.Direction, sig.Confidence)
	fmt.Fprintf(&b, "Entry: %.2f | TP: %.2f | SL: %.2f\n", sig.Entry, sig.PriceTarget, sig.StopLoss)
	for i, r := range sig.Reasons {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "• %s\n", r)
	}

	n.send(b.String())
}

// TradeClosed 推送平仓结果
func (n *TelegramNotifier) TradeClosed(record model.TradeRecord) {
	emoji := "✅"
	if record.RealizedPnL < 0 {
		emoji = "🔻"
	}
	msg := fmt.Sprintf("%s *%s %s closed* (%s)\n%d @ %.2f → %.2f\nPnL: %.2f",
		emoji, record.Symbol, record.Side, record.TriggerReason,
		record.Quantity, record.EntryPrice, record.ExitPrice, record.RealizedPnL)

	n.send(msg)
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		service.Logger.Warn("Telegram send failed", zap.Error(err))
	}
}
