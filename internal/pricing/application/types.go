package application

import (
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// 模拟参数缺省值，请求未指定时使用
const (
	defaultMonteCarloPaths = 100_000
	defaultBumpRatio       = 0.01        // gamma 差分扰动 = 现价 × 该比例
	defaultTimeStep        = 1.0 / 365   // theta 差分的时间增量：一个日历日
	defaultIVTolerance     = 1e-8
	defaultIVMaxIterations = 100
)

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	Symbol          string
	OptionType      string
	StrikePrice     float64
	ExpiryDate      int64 // Unix 毫秒
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
	PricingModel    string
	Paths           int // 蒙特卡洛路径数，0 表示使用缺省值
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	Contracts []PriceOptionCommand
	BatchID   string
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time"`
}

// GreeksQuery 希腊字母查询
type GreeksQuery struct {
	Symbol          string
	OptionType      string
	StrikePrice     float64
	ExpiryDate      int64
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
	Method          string // Analytic / MonteCarlo，空值等同 Analytic
	Paths           int
	BumpSize        float64
	TimeStep        float64
}

// ImpliedVolatilityQuery 隐含波动率查询
type ImpliedVolatilityQuery struct {
	Symbol          string
	OptionType      string
	StrikePrice     float64
	ExpiryDate      int64
	UnderlyingPrice float64
	RiskFreeRate    float64
	DividendYield   float64
	MarketPrice     float64
	Tolerance       float64 // 0 表示使用缺省值
	MaxIterations   int
}

// ImpliedVolatilityDTO 隐含波动率结果
type ImpliedVolatilityDTO struct {
	Symbol            string  `json:"symbol"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	Iterations        int     `json:"iterations"`
	UsedNewton        bool    `json:"used_newton"`
}

// ConvergenceQuery 蒙特卡洛收敛序列查询
type ConvergenceQuery struct {
	Symbol          string
	OptionType      string
	StrikePrice     float64
	ExpiryDate      int64
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
	PathCounts      []int
}

// ConvergenceDTO 收敛序列及其诊断统计。
// 解析价作为基准，误差与离散度描述估计随路径数的稳定程度。
type ConvergenceDTO struct {
	Symbol        string                    `json:"symbol"`
	Points        []domain.ConvergencePoint `json:"points"`
	AnalyticPrice float64                   `json:"analytic_price"`
	MeanPrice     float64                   `json:"mean_price"`
	StdDev        float64                   `json:"std_dev"`
	MaxAbsError   float64                   `json:"max_abs_error"`
	FinalAbsError float64                   `json:"final_abs_error"`
}

// ComparePricesQuery 解析/蒙特卡洛双模型对比查询
type ComparePricesQuery struct {
	Symbol          string
	OptionType      string
	StrikePrice     float64
	ExpiryDate      int64
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
	Paths           int
}

// PriceComparisonDTO 双模型对比结果
type PriceComparisonDTO struct {
	Symbol          string  `json:"symbol"`
	AnalyticPrice   float64 `json:"analytic_price"`
	MonteCarloPrice float64 `json:"monte_carlo_price"`
	AbsDiff         float64 `json:"abs_diff"`
	RelDiff         float64 `json:"rel_diff"`
	Paths           int     `json:"paths"`
}

// yearsToExpiry 到期毫秒时间戳换算为年化剩余期限，已到期取 0
func yearsToExpiry(expiryDate int64) float64 {
	t := float64(expiryDate-time.Now().UnixMilli()) / 1000 / 24 / 3600 / 365
	if t < 0 {
		return 0
	}
	return t
}
