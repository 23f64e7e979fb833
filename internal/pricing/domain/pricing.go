package domain

import (
	"github.com/shopspring/decimal"
)

// PricingModel 定价模型标识
type PricingModel string

const (
	ModelBlackScholes PricingModel = "BlackScholes" // 解析解
	ModelMonteCarlo   PricingModel = "MonteCarlo"   // 蒙特卡洛模拟
)

// PricingResult 定价结果实体
type PricingResult struct {
	Symbol          string          `json:"symbol,omitempty"`
	OptionPrice     decimal.Decimal `json:"option_price"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	PricingModel    PricingModel    `json:"pricing_model"`
	CalculatedAt    int64           `json:"calculated_at"`
}
