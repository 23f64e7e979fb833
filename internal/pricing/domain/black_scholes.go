package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// BlackScholesResult Black-Scholes 模型输出
type BlackScholesResult struct {
	Price decimal.Decimal
	D1    float64
	D2    float64
}

// d1d2 计算 Black-Scholes 公式的 d1/d2 中间项。
// 调用方必须保证 σ√T > 0，σ=0 或 T=0 的退化情形由定价函数先行特判。
func d1d2(spec OptionSpec) (float64, float64) {
	sqrtT := math.Sqrt(spec.T)
	d1 := (math.Log(spec.S/spec.K) + (spec.R-spec.Q+0.5*spec.Sigma*spec.Sigma)*spec.T) / (spec.Sigma * sqrtT)
	d2 := d1 - spec.Sigma*sqrtT
	return d1, d2
}

// intrinsicLimit σ=0 或 T=0 时的极限价格：远期贴现后的内在价值。
// 直接套公式会出现除零，这里特判为确定性收益的贴现值。
func intrinsicLimit(spec OptionSpec) float64 {
	forward := spec.S * math.Exp(-spec.Q*spec.T)
	strike := spec.K * math.Exp(-spec.R*spec.T)
	if spec.IsCall() {
		return math.Max(forward-strike, 0)
	}
	return math.Max(strike-forward, 0)
}

// BlackScholesPrice 计算欧式期权的 Black-Scholes 理论价格。
// Call = S·e^(-qT)·N(d1) - K·e^(-rT)·N(d2)
// Put  = K·e^(-rT)·N(-d2) - S·e^(-qT)·N(-d1)
func BlackScholesPrice(spec OptionSpec) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	return blackScholesPrice(spec), nil
}

// blackScholesPrice 已校验参数的内部定价，希腊字母与隐含波动率迭代复用
func blackScholesPrice(spec OptionSpec) float64 {
	if spec.Sigma == 0 || spec.T == 0 {
		return intrinsicLimit(spec)
	}

	d1, d2 := d1d2(spec)
	discS := spec.S * math.Exp(-spec.Q*spec.T)
	discK := spec.K * math.Exp(-spec.R*spec.T)

	if spec.IsCall() {
		return discS*normCDF(d1) - discK*normCDF(d2)
	}
	return discK*normCDF(-d2) - discS*normCDF(-d1)
}

// CalculateBlackScholes 计算理论价格并附带 d1/d2 中间项
func CalculateBlackScholes(spec OptionSpec) (*BlackScholesResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Sigma == 0 || spec.T == 0 {
		return &BlackScholesResult{Price: decimal.NewFromFloat(intrinsicLimit(spec))}, nil
	}
	d1, d2 := d1d2(spec)
	return &BlackScholesResult{
		Price: decimal.NewFromFloat(blackScholesPrice(spec)),
		D1:    d1,
		D2:    d2,
	}, nil
}
