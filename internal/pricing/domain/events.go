package domain

import "time"

// 领域事件类型
const (
	OptionPricedEventType            = "OptionPriced"
	GreeksCalculatedEventType        = "GreeksCalculated"
	ImpliedVolatilitySolvedEventType = "ImpliedVolatilitySolved"
	BatchPricingCompletedEventType   = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol          string       `json:"symbol,omitempty"`
	OptionType      OptionType   `json:"option_type"`
	StrikePrice     float64      `json:"strike_price"`
	TimeToExpiry    float64      `json:"time_to_expiry"`
	OptionPrice     float64      `json:"option_price"`
	UnderlyingPrice float64      `json:"underlying_price"`
	Volatility      float64      `json:"volatility"`
	RiskFreeRate    float64      `json:"risk_free_rate"`
	DividendYield   float64      `json:"dividend_yield"`
	PricingModel    PricingModel `json:"pricing_model"`
	CalculatedAt    int64        `json:"calculated_at"`
	OccurredOn      time.Time    `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	Symbol          string     `json:"symbol,omitempty"`
	OptionType      OptionType `json:"option_type"`
	StrikePrice     float64    `json:"strike_price"`
	TimeToExpiry    float64    `json:"time_to_expiry"`
	UnderlyingPrice float64    `json:"underlying_price"`
	Method          string     `json:"method"`
	Delta           float64    `json:"delta"`
	Gamma           float64    `json:"gamma"`
	Theta           float64    `json:"theta"`
	Vega            float64    `json:"vega"`
	Rho             float64    `json:"rho"`
	CalculatedAt    int64      `json:"calculated_at"`
	OccurredOn      time.Time  `json:"occurred_on"`
}

// ImpliedVolatilitySolvedEvent 隐含波动率求解完成事件
type ImpliedVolatilitySolvedEvent struct {
	Symbol            string     `json:"symbol,omitempty"`
	OptionType        OptionType `json:"option_type"`
	StrikePrice       float64    `json:"strike_price"`
	TimeToExpiry      float64    `json:"time_to_expiry"`
	UnderlyingPrice   float64    `json:"underlying_price"`
	MarketPrice       float64    `json:"market_price"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Iterations        int        `json:"iterations"`
	UsedNewton        bool       `json:"used_newton"`
	OccurredOn        time.Time  `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID      string    `json:"batch_id"`
	TotalOptions int       `json:"total_options"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	AverageTime  float64   `json:"average_time"`
	CompletedAt  int64     `json:"completed_at"`
	OccurredOn   time.Time `json:"occurred_on"`
}
