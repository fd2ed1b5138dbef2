package service

import (
	"fmt"
	"math"
	"time"

	"equity-algo-trader/internal/model"

	"github.com/spf13/viper"
)

// ExchangeConfig 定义了行情网关的连接信息
type ExchangeConfig struct {
	WSURL   string
	RESTURL string
}

// StorageConfig 定义了信号/订单/成交的持久化目标，DSN 为空则不落库
type StorageConfig struct {
	PostgresDSN string
}

// NotifyConfig 定义了 Telegram 通知参数，Token 为空则静默
type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID int64
	MinConfidence  float64 // 低于该置信度的信号不推送
}

// IndicatorConfig 技术指标周期参数
type IndicatorConfig struct {
	MinBars         int // 指标计算所需的最小 K 线数量
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BBPeriod        int
	BBStd           float64
	SMAShort        int
	SMALong         int
	EMAFast         int
	EMASlow         int
	ADXPeriod       int
	StochFastK      int
	StochSlowK      int
	StochSlowD      int
	WilliamsRPeriod int
	CCIPeriod       int
	MomentumPeriod  int
	VolumeSMAPeriod int
}

// StrategyConfig 子策略阈值和融合参数
type StrategyConfig struct {
	RSIOversold   float64
	RSIOverbought float64

	// 各子策略的固定权重，总和必须为 1.0
	TrendWeight         float64
	MeanReversionWeight float64
	MomentumWeight      float64
	BreakoutWeight      float64
	VolumeWeight        float64

	// 融合得分超过该阈值才给出 BUY/SELL 方向
	ScoreThreshold float64

	// 信号目标价/止损价的比例 (BUY: entry*(1+Target), entry*(1-Stop))
	TargetPercent float64
	StopPercent   float64
	// 固定风险回报比。来源系统写死 1.5 而非由目标/止损推导，保留为配置项
	RiskReward float64
}

// RiskConfig 风控与仓位参数
type RiskConfig struct {
	MinSignalConfidence  float64 // 低于该置信度的 BUY/SELL 信号直接拒绝
	MaxPositionFraction  float64 // 单笔持仓占组合价值的上限
	MaxPortfolioRisk     float64 // 组合级风险敞口系数
	MaxPositions         int     // 最大并发持仓数
	MinNotional          float64 // 最小下单金额 (₹)
	ConfidenceRiskFactor float64 // base_risk = min(maxFraction, conf/100*该系数)
}

// ExecutionConfig 模拟撮合参数
type ExecutionConfig struct {
	InitialCapital float64
	Slippage       float64 // 市价单滑点比例
	CommissionRate float64
	CommissionMin  float64       // 单笔最低手续费 (₹)
	QuoteStaleness time.Duration // 行情超过该时长视为过期
}

// InstanceConfig 单个交易标的的运行参数
type InstanceConfig struct {
	Symbol   string
	Interval string // 评估周期，例如 "5m"
	Lookback int    // 启动时回补的历史 K 线数量
}

// Config 是传入各组件构造函数的只读配置
type Config struct {
	Exchange  ExchangeConfig            `mapstructure:"Exchange"`
	Storage   StorageConfig             `mapstructure:"Storage"`
	Notify    NotifyConfig              `mapstructure:"Notify"`
	Indicator IndicatorConfig           `mapstructure:"Indicator"`
	Strategy  StrategyConfig            `mapstructure:"Strategy"`
	Risk      RiskConfig                `mapstructure:"Risk"`
	Execution ExecutionConfig           `mapstructure:"Execution"`
	Instances map[string]InstanceConfig `mapstructure:"Instances"`
}

// LoadConfig 读取并解析配置文件，随后做启动校验
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// 允许无配置文件启动，全部使用默认值
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("Indicator.MinBars", 50)
	viper.SetDefault("Indicator.RSIPeriod", 14)
	viper.SetDefault("Indicator.MACDFast", 12)
	viper.SetDefault("Indicator.MACDSlow", 26)
	viper.SetDefault("Indicator.MACDSignal", 9)
	viper.SetDefault("Indicator.BBPeriod", 20)
	viper.SetDefault("Indicator.BBStd", 2.0)
	viper.SetDefault("Indicator.SMAShort", 20)
	viper.SetDefault("Indicator.SMALong", 50)
	viper.SetDefault("Indicator.EMAFast", 12)
	viper.SetDefault("Indicator.EMASlow", 26)
	viper.SetDefault("Indicator.ADXPeriod", 14)
	viper.SetDefault("Indicator.StochFastK", 14)
	viper.SetDefault("Indicator.StochSlowK", 3)
	viper.SetDefault("Indicator.StochSlowD", 3)
	viper.SetDefault("Indicator.WilliamsRPeriod", 14)
	viper.SetDefault("Indicator.CCIPeriod", 20)
	viper.SetDefault("Indicator.MomentumPeriod", 10)
	viper.SetDefault("Indicator.VolumeSMAPeriod", 20)

	viper.SetDefault("Strategy.RSIOversold", 30.0)
	viper.SetDefault("Strategy.RSIOverbought", 70.0)
	viper.SetDefault("Strategy.TrendWeight", 0.25)
	viper.SetDefault("Strategy.MeanReversionWeight", 0.20)
	viper.SetDefault("Strategy.MomentumWeight", 0.25)
	viper.SetDefault("Strategy.BreakoutWeight", 0.15)
	viper.SetDefault("Strategy.VolumeWeight", 0.15)
	viper.SetDefault("Strategy.ScoreThreshold", 20.0)
	viper.SetDefault("Strategy.TargetPercent", 0.03)
	viper.SetDefault("Strategy.StopPercent", 0.02)
	viper.SetDefault("Strategy.RiskReward", 1.5)

	viper.SetDefault("Risk.MinSignalConfidence", 70.0)
	viper.SetDefault("Risk.MaxPositionFraction", 0.20)
	viper.SetDefault("Risk.MaxPortfolioRisk", 0.02)
	viper.SetDefault("Risk.MaxPositions", 10)
	viper.SetDefault("Risk.MinNotional", 1000.0)
	viper.SetDefault("Risk.ConfidenceRiskFactor", 0.08)

	viper.SetDefault("Execution.InitialCapital", 1000000.0)
	viper.SetDefault("Execution.Slippage", 0.0005)
	viper.SetDefault("Execution.CommissionRate", 0.001)
	viper.SetDefault("Execution.CommissionMin", 10.0)
	viper.SetDefault("Execution.QuoteStaleness", 10*time.Second)

	viper.SetDefault("Notify.MinConfidence", 70.0)
}

// Weights 返回按固定注册顺序排列的 (策略名, 权重) 表
func (c *StrategyConfig) Weights() map[string]float64 {
	return map[string]float64{
		"trend_following": c.TrendWeight,
		"mean_reversion":  c.MeanReversionWeight,
		"momentum":        c.MomentumWeight,
		"breakout":        c.BreakoutWeight,
		"volume_analysis": c.VolumeWeight,
	}
}

// Validate 启动校验：任何一项失败都应阻止引擎运行
func (c *Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", model.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}

	sum := c.Strategy.TrendWeight + c.Strategy.MeanReversionWeight + c.Strategy.MomentumWeight +
		c.Strategy.BreakoutWeight + c.Strategy.VolumeWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fail("strategy weights must sum to 1.0, got %.6f", sum)
	}

	periods := map[string]int{
		"RSIPeriod":       c.Indicator.RSIPeriod,
		"MACDFast":        c.Indicator.MACDFast,
		"MACDSlow":        c.Indicator.MACDSlow,
		"MACDSignal":      c.Indicator.MACDSignal,
		"BBPeriod":        c.Indicator.BBPeriod,
		"SMAShort":        c.Indicator.SMAShort,
		"SMALong":         c.Indicator.SMALong,
		"EMAFast":         c.Indicator.EMAFast,
		"EMASlow":         c.Indicator.EMASlow,
		"ADXPeriod":       c.Indicator.ADXPeriod,
		"StochFastK":      c.Indicator.StochFastK,
		"StochSlowK":      c.Indicator.StochSlowK,
		"StochSlowD":      c.Indicator.StochSlowD,
		"WilliamsRPeriod": c.Indicator.WilliamsRPeriod,
		"CCIPeriod":       c.Indicator.CCIPeriod,
		"MomentumPeriod":  c.Indicator.MomentumPeriod,
		"VolumeSMAPeriod": c.Indicator.VolumeSMAPeriod,
	}
	for name, p := range periods {
		if p <= 0 {
			return fail("indicator period %s must be positive, got %d", name, p)
		}
	}
	if c.Indicator.MACDFast >= c.Indicator.MACDSlow {
		return fail("MACDFast (%d) must be shorter than MACDSlow (%d)", c.Indicator.MACDFast, c.Indicator.MACDSlow)
	}
	if c.Indicator.SMAShort >= c.Indicator.SMALong {
		return fail("SMAShort (%d) must be shorter than SMALong (%d)", c.Indicator.SMAShort, c.Indicator.SMALong)
	}
	if c.Indicator.MinBars < c.Indicator.SMALong {
		return fail("MinBars (%d) must cover the longest period (%d)", c.Indicator.MinBars, c.Indicator.SMALong)
	}

	if c.Risk.MinSignalConfidence < 0 || c.Risk.MinSignalConfidence > 100 {
		return fail("MinSignalConfidence must be within [0,100], got %.1f", c.Risk.MinSignalConfidence)
	}
	if c.Risk.MaxPositionFraction <= 0 || c.Risk.MaxPositionFraction > 1 {
		return fail("MaxPositionFraction must be within (0,1], got %.3f", c.Risk.MaxPositionFraction)
	}
	if c.Risk.MaxPortfolioRisk <= 0 || c.Risk.MaxPortfolioRisk > 1 {
		return fail("MaxPortfolioRisk must be within (0,1], got %.3f", c.Risk.MaxPortfolioRisk)
	}
	if c.Risk.MaxPositions <= 0 {
		return fail("MaxPositions must be positive, got %d", c.Risk.MaxPositions)
	}

	if c.Execution.InitialCapital <= 0 {
		return fail("InitialCapital must be positive, got %.2f", c.Execution.InitialCapital)
	}
	if c.Execution.Slippage < 0 || c.Execution.CommissionRate < 0 {
		return fail("Slippage and CommissionRate must not be negative")
	}
	if c.Execution.QuoteStaleness <= 0 {
		return fail("QuoteStaleness must be positive")
	}

	for name, inst := range c.Instances {
		if inst.Symbol == "" {
			return fail("instance %s: Symbol is required", name)
		}
		if _, err := ParseIntervalDuration(inst.Interval); err != nil {
			return fail("instance %s: %v", name, err)
		}
	}

	return nil
}
