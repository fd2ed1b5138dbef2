package risk

import (
	"fmt"
	"math"

	"equity-algo-trader/internal/model"
	"equity-algo-trader/internal/portfolio"
	"equity-algo-trader/internal/service"

	"go.uber.org/zap"
)

// 拒绝原因常量，作为稳定的机器可读字符串暴露给调用方
const (
	ReasonHoldSignal      = "hold_signal"
	ReasonLowConfidence   = "low_confidence"
	ReasonPositionExists  = "position_exists"
	ReasonMaxPositions    = "max_positions"
	ReasonQuantityInvalid = "quantity_invalid"
)

// Sizer 将融合信号转换为带数量的下单请求，并执行全部风控前置检查。
// 只读账本快照，不修改任何状态。
type Sizer struct {
	cfg    *service.RiskConfig
	logger *zap.Logger
}

// NewSizer 初始化风控仓位计算器
func NewSizer(cfg *service.RiskConfig, logger *zap.Logger) *Sizer {
	return &Sizer{cfg: cfg, logger: logger}
}

// Size 计算下单数量。任何一个前置条件不满足都返回 RejectedError，
// 引擎内部不重试，由调用方决定后续处理。
func (s *Sizer) Size(sig model.Signal, view portfolio.View) (model.OrderRequest, error) {
	if sig.Direction == model.DirectionHold {
		return model.OrderRequest{}, model.Reject(ReasonHoldSignal, "")
	}
	if sig.Confidence < s.cfg.MinSignalConfidence {
		return model.OrderRequest{}, model.Reject(ReasonLowConfidence,
			fmt.Sprintf("confidence %.1f below %.1f", sig.Confidence, s.cfg.MinSignalConfidence))
	}
	if view.HasPosition(sig.Symbol) {
		return model.OrderRequest{}, model.Reject(ReasonPositionExists, sig.Symbol)
	}
	if view.OpenPositions() >= s.cfg.MaxPositions {
		return model.OrderRequest{}, model.Reject(ReasonMaxPositions,
			fmt.Sprintf("%d open positions", view.OpenPositions()))
	}

	entry := sig.Entry
	if entry <= 0 {
		return model.OrderRequest{}, model.Reject(ReasonQuantityInvalid, "entry price not positive")
	}

	// 仓位比例随置信度线性放大，但不超过单仓上限
	baseRisk := math.Min(s.cfg.MaxPositionFraction, sig.Confidence/100*s.cfg.ConfidenceRiskFactor)

	// 单位风险：入场价到止损价的距离，无止损时按 2% 入场价兜底
	riskPerUnit := entry * 0.02
	if sig.StopLoss > 0 {
		riskPerUnit = math.Abs(entry - sig.StopLoss)
	}
	if riskPerUnit <= 0 {
		return model.OrderRequest{}, model.Reject(ReasonQuantityInvalid, "zero risk per unit")
	}

	riskAmount := view.PortfolioValue * baseRisk * s.cfg.MaxPortfolioRisk
	quantity := int64(math.Floor(riskAmount / riskPerUnit))

	// 下限：保证最小下单金额；上限：单仓市值不超过组合比例上限
	minQty := int64(math.Max(1, math.Floor(s.cfg.MinNotional/entry)))
	if quantity < minQty {
		quantity = minQty
	}
	maxQty := int64(math.Floor(view.PortfolioValue * s.cfg.MaxPositionFraction / entry))
	if quantity > maxQty {
		quantity = maxQty
	}

	if quantity <= 0 {
		return model.OrderRequest{}, model.Reject(ReasonQuantityInvalid,
			fmt.Sprintf("clamped quantity %d", quantity))
	}

	side := model.OrderBuy
	if sig.Direction == model.DirectionSell {
		side = model.OrderSell
	}

	// 买单需要现金覆盖名义金额
	if side == model.OrderBuy && float64(quantity)*entry > view.Cash {
		return model.OrderRequest{}, model.Reject(ReasonQuantityInvalid,
			fmt.Sprintf("notional %.2f exceeds cash %.2f", float64(quantity)*entry, view.Cash))
	}

	if s.logger != nil {
		s.logger.Info("Order sized",
			zap.String("symbol", sig.Symbol),
			zap.String("side", string(side)),
			zap.Int64("quantity", quantity),
			zap.Float64("confidence", sig.Confidence),
			zap.Float64("risk_amount", riskAmount))
	}

	return model.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       side,
		Type:       model.OrderMarket,
		Quantity:   quantity,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.PriceTarget,
	}, nil
}
