package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"equity-algo-trader/internal/api"
	"equity-algo-trader/internal/data"
	"equity-algo-trader/internal/executor"
	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/notify"
	"equity-algo-trader/internal/portfolio"
	"equity-algo-trader/internal/risk"
	"equity-algo-trader/internal/service"
	"equity-algo-trader/internal/storage"
	"equity-algo-trader/internal/strategy"
	"equity-algo-trader/pkg/ta"

	"go.uber.org/zap"
)

func main() {
	service.InitLogger()
	defer service.Logger.Sync()

	configPath := "config"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		service.Logger.Fatal("Configuration directory 'config/' not found. Please create it.")
	}
	cfg, err := service.LoadConfig(configPath)
	if err != nil {
		service.Logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// 1. 收集所有要订阅的 Symbol
	var symbols []string
	for _, instanceCfg := range cfg.Instances {
		symbols = append(symbols, instanceCfg.Symbol)
	}
	if len(symbols) == 0 {
		service.Logger.Fatal("No trading instances configured")
	}

	// 2. 可选组件：持久化和推送
	var store *storage.Store
	if cfg.Storage.PostgresDSN != "" {
		store, err = storage.NewStore(cfg.Storage.PostgresDSN, service.Logger)
		if err != nil {
			service.Logger.Fatal("Failed to init storage", zap.Error(err))
		}
		defer store.Close()
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(&cfg.Notify)
		if err != nil {
			service.Logger.Fatal("Failed to init telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	// 3. 共享账本和模拟撮合引擎：所有标的共用一份资金
	quoteBook := data.NewQuoteBook()
	ledger := portfolio.NewLedger(cfg.Execution.InitialCapital)
	service.Logger.Info("Paper ledger initialized",
		zap.Float64("initial_capital", ledger.InitialCapital()),
		zap.Float64("slippage", cfg.Execution.Slippage))
	paperExec := executor.NewPaperExecutor(&cfg.Execution, ledger, quoteBook, service.Logger)
	paperExec.SetTradeHandler(func(record model.TradeRecord) {
		service.Logger.Info("Trade closed", zap.String("Trade", record.String()))
		notifier.TradeClosed(record)
		if store != nil {
			if err := store.SaveTrade(ctx, record); err != nil {
				service.Logger.Error("Failed to persist trade", zap.Error(err))
			}
		}
	})

	// 4. 连接行情网关
	connector := api.NewConnector(cfg.Exchange.WSURL, symbols)
	go connector.Start()

	var feed api.Feed = api.NewGatewayFeed(quoteBook, api.NewHistoryClient(cfg.Exchange.RESTURL, service.Logger))

	// 5. 行情分发：更新全局报价簿，驱动止损/止盈监控，再分发到各标的引擎
	engines := make(map[string]*data.BarEngine, len(cfg.Instances))
	quoteChans := make(map[string]chan model.Quote, len(cfg.Instances))
	for _, instanceCfg := range cfg.Instances {
		interval, _ := service.ParseIntervalDuration(instanceCfg.Interval)
		engines[instanceCfg.Symbol] = data.NewBarEngine(instanceCfg.Symbol, interval, service.Logger)
		quoteChans[instanceCfg.Symbol] = make(chan model.Quote, 256)
	}

	go func() {
		for quote := range connector.GetQuoteChannel() {
			quoteBook.Update(quote)
			paperExec.MonitorPositions(ctx, quote)
			paperExec.ProcessPending(ctx)

			if ch, ok := quoteChans[quote.Symbol]; ok {
				select {
				case ch <- quote:
				default:
					service.Logger.Warn("Instance quote channel full! Dropping quote.",
						zap.String("Symbol", quote.Symbol))
				}
			}
		}
	}()

	// 6. 为每个交易实例启动一个隔离的业务 Goroutine
	for instanceName, instanceCfg := range cfg.Instances {
		service.Logger.Info(fmt.Sprintf("Instance: %s, Symbol: %s", instanceName, instanceCfg.Symbol))

		go func(name string, instance service.InstanceConfig) {
			instanceLogger := service.Logger.With(zap.String("Instance", name), zap.String("Symbol", instance.Symbol))
			instanceLogger.Info("Starting isolated trading pipeline...")

			engine := engines[instance.Symbol]

			// 重启后回看最近的平仓记录，核对连续性
			if store != nil {
				if trades, err := store.RecentTrades(ctx, instance.Symbol, 5); err != nil {
					instanceLogger.Warn("Failed to load recent trades", zap.Error(err))
				} else {
					for _, tr := range trades {
						instanceLogger.Info("Recent trade", zap.String("Trade", tr.String()))
					}
				}
			}

			// 启动回补历史 K 线，保证指标立即可算
			if instance.Lookback > 0 {
				backfillCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				bars, err := feed.GetBars(backfillCtx, instance.Symbol, instance.Interval, instance.Lookback)
				cancel()
				if err != nil {
					instanceLogger.Warn("History backfill failed, starting cold", zap.Error(err))
				} else {
					engine.Bootstrap(bars)
				}
			}

			// 初始化策略管道：指标计算 -> 五策略融合 -> 风控定量
			calculator := ta.NewCalculator(&cfg.Indicator, instanceLogger)
			fusion, err := strategy.NewFusionEngine(&cfg.Strategy, strategy.DefaultStrategies(&cfg.Strategy), instanceLogger)
			if err != nil {
				instanceLogger.Fatal("Failed to init fusion engine", zap.Error(err))
			}
			signalGenerator := strategy.NewSignalGenerator(calculator, fusion, instanceLogger)
			sizer := risk.NewSizer(&cfg.Risk, instanceLogger)

			go engine.Run(ctx, quoteChans[instance.Symbol])

			// 主循环：每根 K 线收盘驱动一次决策
			for range engine.BarChannel() {
				quote, err := feed.GetQuote(ctx, instance.Symbol)
				if err != nil {
					continue
				}

				signal := signalGenerator.GenerateSignal(quote, engine.Bars())
				if store != nil {
					if err := store.SaveSignal(ctx, signal); err != nil {
						instanceLogger.Error("Failed to persist signal", zap.Error(err))
					}
				}

				if signal.Direction == model.DirectionHold {
					continue
				}

				instanceLogger.Info("!!! NEW TRADING SIGNAL !!!", zap.String("Signal", signal.String()))
				notifier.SignalGenerated(signal)

				req, err := sizer.Size(signal, ledger.Snapshot())
				if err != nil {
					if reason, ok := model.RejectReason(err); ok {
						instanceLogger.Info("Signal not tradable", zap.String("reason", reason))
					} else {
						instanceLogger.Error("Sizing failed", zap.Error(err))
					}
					continue
				}

				order, err := paperExec.SubmitOrder(ctx, req)
				if err != nil {
					instanceLogger.Error("Order submission failed", zap.Error(err))
					continue
				}
				if store != nil {
					if err := store.SaveOrder(ctx, *order); err != nil {
						instanceLogger.Error("Failed to persist order", zap.Error(err))
					}
				}
			}
		}(instanceName, instanceCfg)
	}

	// 保持主 Goroutine 不退出
	select {}
}
