package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Greeks 希腊字母：期权价格对市场参数的敏感度。
// Vega 按波动率变动 1% 计（除以 100），其余为原始偏导数。
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// greekSet 内部以 float64 表示的希腊字母集合
type greekSet struct {
	delta float64
	gamma float64
	theta float64
	vega  float64
	rho   float64
}

// toGreeks 转换为对外的 decimal 表示
func (g greekSet) toGreeks() *Greeks {
	return &Greeks{
		Delta: decimal.NewFromFloat(g.delta),
		Gamma: decimal.NewFromFloat(g.gamma),
		Theta: decimal.NewFromFloat(g.theta),
		Vega:  decimal.NewFromFloat(g.vega),
		Rho:   decimal.NewFromFloat(g.rho),
	}
}

// CalculateGreeks 用 Black-Scholes 公式的解析偏导数计算希腊字母。
// σ=0 或 T=0 时 d1/d2 退化（除零），与定价一致特判为到期极限值。
func CalculateGreeks(spec OptionSpec) (*Greeks, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Sigma == 0 || spec.T == 0 {
		return expiryGreeks(spec).toGreeks(), nil
	}

	d1, d2 := d1d2(spec)
	sqrtT := math.Sqrt(spec.T)
	discQ := math.Exp(-spec.Q * spec.T)
	discR := math.Exp(-spec.R * spec.T)
	pdf := normPDF(d1)

	var g greekSet

	// Gamma 与 Vega 对看涨/看跌相同
	g.gamma = discQ * pdf / (spec.S * spec.Sigma * sqrtT)
	g.vega = spec.S * discQ * pdf * sqrtT / 100

	// 共用的时间衰减项
	decay := -spec.S * pdf * spec.Sigma * discQ / (2 * sqrtT)

	if spec.IsCall() {
		g.delta = discQ * normCDF(d1)
		g.theta = decay - spec.R*spec.K*discR*normCDF(d2) + spec.Q*spec.S*discQ*normCDF(d1)
		g.rho = spec.K * spec.T * discR * normCDF(d2)
	} else {
		g.delta = discQ * (normCDF(d1) - 1)
		g.theta = decay + spec.R*spec.K*discR*normCDF(-d2) - spec.Q*spec.S*discQ*normCDF(-d1)
		g.rho = -spec.K * spec.T * discR * normCDF(-d2)
	}

	return g.toGreeks(), nil
}

// expiryGreeks σ=0 或 T=0 时的极限希腊字母。
// Delta 取内在价值的符号方向，二阶及时间、波动率敏感度归零。
func expiryGreeks(spec OptionSpec) greekSet {
	var g greekSet
	if spec.IsCall() {
		switch {
		case spec.S > spec.K:
			g.delta = 1
		case spec.S < spec.K:
			g.delta = 0
		default:
			g.delta = 0.5
		}
	} else {
		switch {
		case spec.S < spec.K:
			g.delta = -1
		case spec.S > spec.K:
			g.delta = 0
		default:
			g.delta = -0.5
		}
	}
	return g
}
