// Package domain 期权分析服务的领域模型：解析解定价、希腊字母、蒙特卡洛模拟与隐含波动率求解
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// 领域错误
var (
	// ErrInvalidOptionType 未识别的期权类型（既不是 CALL 也不是 PUT）
	ErrInvalidOptionType = errors.New("invalid option type")
	// ErrInvalidSpec 期权参数非法（S/K 非正、T/σ 为负等）
	ErrInvalidSpec = errors.New("invalid option spec")
	// ErrInvalidSimulationConfig 模拟参数非法（路径数、步长等非正）
	ErrInvalidSimulationConfig = errors.New("invalid simulation config")
	// ErrNoConvergence 隐含波动率两阶段搜索均未收敛
	ErrNoConvergence = errors.New("implied volatility search did not converge")
)

// ParseOptionType 解析期权类型，边界处大小写不敏感，内部统一为 CALL/PUT
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(OptionTypeCall):
		return OptionTypeCall, nil
	case string(OptionTypePut):
		return OptionTypePut, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOptionType, s)
	}
}

// Valid 返回期权类型是否为两个合法变体之一
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// OptionSpec 欧式期权定价参数（值对象，构造后不可变）
type OptionSpec struct {
	S     float64    // 标的资产当前价格
	K     float64    // 行权价格
	T     float64    // 到期时间（年）
	R     float64    // 无风险利率
	Sigma float64    // 波动率
	Q     float64    // 股息收益率（允许为负，表示借贷成本）
	Type  OptionType // 期权类型
}

// Validate 校验定价参数：S、K 必须严格为正，T、σ 非负，类型必须合法。
// 非法输入在公共操作的边界快速失败，不允许进入未定义分支。
func (spec OptionSpec) Validate() error {
	if spec.S <= 0 {
		return fmt.Errorf("%w: spot price must be positive, got %v", ErrInvalidSpec, spec.S)
	}
	if spec.K <= 0 {
		return fmt.Errorf("%w: strike price must be positive, got %v", ErrInvalidSpec, spec.K)
	}
	if spec.T < 0 {
		return fmt.Errorf("%w: time to expiry must be non-negative, got %v", ErrInvalidSpec, spec.T)
	}
	if spec.Sigma < 0 {
		return fmt.Errorf("%w: volatility must be non-negative, got %v", ErrInvalidSpec, spec.Sigma)
	}
	if !spec.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOptionType, spec.Type)
	}
	return nil
}

// IsCall 返回是否为看涨期权
func (spec OptionSpec) IsCall() bool {
	return spec.Type == OptionTypeCall
}

// WithSigma 返回替换波动率后的副本，隐含波动率迭代时使用
func (spec OptionSpec) WithSigma(sigma float64) OptionSpec {
	spec.Sigma = sigma
	return spec
}

// normCDF 标准正态分布累积分布函数
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF 标准正态分布概率密度函数
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
