package storage

import (
	"context"
	"fmt"

	"equity-algo-trader/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// 三张事件表都是只插入的，历史回放和复盘依赖不可变记录
const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id            BIGSERIAL PRIMARY KEY,
	symbol        TEXT             NOT NULL,
	direction     TEXT             NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	entry         DOUBLE PRECISION NOT NULL,
	price_target  DOUBLE PRECISION NOT NULL,
	stop_loss     DOUBLE PRECISION NOT NULL,
	reasons       TEXT[]           NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id              TEXT PRIMARY KEY,
	symbol          TEXT             NOT NULL,
	side            TEXT             NOT NULL,
	order_type      TEXT             NOT NULL,
	quantity        BIGINT           NOT NULL,
	status          TEXT             NOT NULL,
	filled_quantity BIGINT           NOT NULL,
	filled_price    DOUBLE PRECISION NOT NULL,
	commission      DOUBLE PRECISION NOT NULL,
	reason          TEXT             NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id             TEXT PRIMARY KEY,
	symbol         TEXT             NOT NULL,
	side           TEXT             NOT NULL,
	entry_price    DOUBLE PRECISION NOT NULL,
	exit_price     DOUBLE PRECISION NOT NULL,
	quantity       BIGINT           NOT NULL,
	realized_pnl   DOUBLE PRECISION NOT NULL,
	commission     DOUBLE PRECISION NOT NULL,
	entry_time     TIMESTAMPTZ      NOT NULL,
	exit_time      TIMESTAMPTZ      NOT NULL,
	trigger_reason TEXT             NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals (symbol, created_at);
CREATE INDEX IF NOT EXISTS idx_trades_symbol_time  ON trades (symbol, exit_time);
`

// Store 将信号、订单和成交记录持久化到 Postgres
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore 建立连接并初始化表结构
func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info("Postgres store ready")
	return &Store{db: db, logger: logger}, nil
}

// SaveSignal 落库一条融合信号
func (s *Store) SaveSignal(ctx context.Context, sig model.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (symbol, direction, confidence, entry, price_target, stop_loss, reasons, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sig.Symbol, string(sig.Direction), sig.Confidence, sig.Entry,
		sig.PriceTarget, sig.StopLoss, pq.Array(sig.Reasons), sig.CreatedAt)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

// SaveOrder 落库订单的最终状态，同一 ID 重复写入时覆盖状态字段
func (s *Store) SaveOrder(ctx context.Context, o model.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, symbol, side, order_type, quantity, status, filled_quantity, filled_price, commission, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			filled_quantity = EXCLUDED.filled_quantity,
			filled_price = EXCLUDED.filled_price,
			commission = EXCLUDED.commission,
			reason = EXCLUDED.reason`,
		o.ID, o.Symbol, string(o.Side), string(o.Type), o.Quantity, string(o.Status),
		o.FilledQuantity, o.FilledPrice, o.Commission, o.Reason, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// SaveTrade 落库一条平仓记录
func (s *Store) SaveTrade(ctx context.Context, t model.TradeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (id, symbol, side, entry_price, exit_price, quantity, realized_pnl, commission, entry_time, exit_time, trigger_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Symbol, string(t.Side), t.EntryPrice, t.ExitPrice, t.Quantity,
		t.RealizedPnL, t.Commission, t.EntryTime, t.ExitTime, t.TriggerReason)
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// RecentTrades 按平仓时间倒序返回最近 limit 条成交记录
func (s *Store) RecentTrades(ctx context.Context, symbol string, limit int) ([]model.TradeRecord, error) {
	var out []model.TradeRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, symbol, side, entry_price AS entryprice, exit_price AS exitprice, quantity,
		        realized_pnl AS realizedpnl, commission, entry_time AS entrytime,
		        exit_time AS exittime, trigger_reason AS triggerreason
		 FROM trades WHERE symbol = $1 ORDER BY exit_time DESC LIMIT $2`,
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return out, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}
