package domain

import (
	"fmt"
	"math"
)

// 隐含波动率求解参数
const (
	// ivInitialGuess 牛顿迭代初始波动率
	ivInitialGuess = 0.3
	// ivSigmaMin / ivSigmaMax 搜索域边界
	ivSigmaMin = 1e-6
	ivSigmaMax = 5.0
	// ivVegaFloor vega 低于该阈值时牛顿更新不稳定，切换为二分法
	ivVegaFloor = 1e-8
)

// solverPhase 两阶段求解器的显式状态
type solverPhase int

const (
	phaseNewton solverPhase = iota // 牛顿迭代阶段
	phaseBisection                 // 二分法回退阶段
	phaseDone                      // 已收敛
	phaseFailed                    // 两阶段均未收敛
)

// ImpliedVolatilityResult 隐含波动率求解结果
type ImpliedVolatilityResult struct {
	Sigma      float64 // 求得的波动率
	Iterations int     // 两阶段累计迭代次数
	UsedNewton bool    // 是否在牛顿阶段收敛
}

// impliedVolSolver 牛顿-拉夫逊 + 二分法两阶段求解器。
// 阶段转移条件（vega 过平、迭代耗尽）各自独立，便于单独验证。
type impliedVolSolver struct {
	spec        OptionSpec // Sigma 字段在迭代中被替换
	marketPrice float64
	tolerance   float64 // 相对容差：|模型价 - 市场价| < tolerance·max(1, 市场价)
	maxIter     int

	phase      solverPhase
	sigma      float64
	iterations int
}

// rawVega 未按 1% 缩放的 ∂price/∂σ，牛顿更新使用。
// 对外报告的希腊字母 Vega 保留 /100 约定，两者刻度不同。
func rawVega(spec OptionSpec) float64 {
	if spec.Sigma <= 0 || spec.T <= 0 {
		return 0
	}
	d1, _ := d1d2(spec)
	return spec.S * math.Exp(-spec.Q*spec.T) * normPDF(d1) * math.Sqrt(spec.T)
}

// SolveImpliedVolatility 由观测到的市场价格反解波动率。
// spec 中的 Sigma 字段被忽略；未找到解时返回 ErrNoConvergence，
// 绝不返回可能被误认为真实波动率的哨兵数值。
func SolveImpliedVolatility(spec OptionSpec, marketPrice, tolerance float64, maxIter int) (*ImpliedVolatilityResult, error) {
	probe := spec.WithSigma(0)
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	if marketPrice <= 0 {
		return nil, fmt.Errorf("%w: market price must be positive, got %v", ErrInvalidSpec, marketPrice)
	}
	if tolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerance must be positive, got %v", ErrInvalidSpec, tolerance)
	}
	if maxIter <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidSpec, maxIter)
	}

	s := &impliedVolSolver{
		spec:        spec,
		marketPrice: marketPrice,
		tolerance:   tolerance,
		maxIter:     maxIter,
		phase:       phaseNewton,
		sigma:       ivInitialGuess,
	}
	return s.solve()
}

// solve 驱动状态机直到 Done 或 Failed
func (s *impliedVolSolver) solve() (*ImpliedVolatilityResult, error) {
	usedNewton := false
	for {
		switch s.phase {
		case phaseNewton:
			s.runNewton()
			usedNewton = s.phase == phaseDone
		case phaseBisection:
			s.runBisection()
		case phaseDone:
			return &ImpliedVolatilityResult{
				Sigma:      s.sigma,
				Iterations: s.iterations,
				UsedNewton: usedNewton,
			}, nil
		case phaseFailed:
			return nil, fmt.Errorf("%w: after %d iterations", ErrNoConvergence, s.iterations)
		}
	}
}

// priceDiff 当前 σ 下的模型价与市场价之差
func (s *impliedVolSolver) priceDiff(sigma float64) float64 {
	return blackScholesPrice(s.spec.WithSigma(sigma)) - s.marketPrice
}

// converged 相对容差判据，深度实值的高价期权不因绝对误差被误判
func (s *impliedVolSolver) converged(diff float64) bool {
	return math.Abs(diff) < s.tolerance*math.Max(1, s.marketPrice)
}

// runNewton 牛顿-拉夫逊阶段：σ ← σ - (模型价-市场价)/vega，
// 每步钳制回 [ivSigmaMin, ivSigmaMax]。vega 过平时不报错，
// 转入二分法阶段继续搜索。
func (s *impliedVolSolver) runNewton() {
	for i := 0; i < s.maxIter; i++ {
		s.iterations++

		diff := s.priceDiff(s.sigma)
		if s.converged(diff) {
			s.phase = phaseDone
			return
		}

		vega := rawVega(s.spec.WithSigma(s.sigma))
		if vega < ivVegaFloor {
			s.phase = phaseBisection
			return
		}

		s.sigma -= diff / vega
		s.sigma = math.Min(math.Max(s.sigma, ivSigmaMin), ivSigmaMax)
	}
	s.phase = phaseBisection
}

// runBisection 二分法回退阶段。依赖欧式期权价格对 σ 单调不减这一性质
// 决定收缩哪一侧边界；该假设对普通看涨/看跌成立，扩展到无此单调性的
// 产品时此处会静默失效。
func (s *impliedVolSolver) runBisection() {
	low, high := ivSigmaMin, ivSigmaMax
	for i := 0; i < s.maxIter; i++ {
		s.iterations++

		mid := (low + high) / 2
		diff := s.priceDiff(mid)
		if s.converged(diff) {
			s.sigma = mid
			s.phase = phaseDone
			return
		}

		if diff > 0 {
			high = mid
		} else {
			low = mid
		}
	}
	s.phase = phaseFailed
}
