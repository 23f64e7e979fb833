package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// NormalSample 一批标准正态随机数。生成后只读，
// 多个估计量共享同一份样本以消除估计量之间的随机噪声。
type NormalSample []float64

// ConvergencePoint 收敛序列中的一个数据点：(路径数, 估计价格)
type ConvergencePoint struct {
	Paths int     `json:"paths"`
	Price float64 `json:"price"`
}

// MonteCarloPricer 蒙特卡洛定价器。随机源由种子显式注入，
// 相同种子产生相同样本，保证测试与回放可复现。
// 单个实例持有内部随机流，不支持并发调用；并行场景用 Derive 派生独立实例。
type MonteCarloPricer struct {
	seed uint64
	rng  *rand.Rand
}

// NewMonteCarloPricer 创建蒙特卡洛定价器
func NewMonteCarloPricer(seed uint64) *MonteCarloPricer {
	return &MonteCarloPricer{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, 0)),
	}
}

// Derive 派生独立随机流的定价器，流编号参与种子，互不重叠
func (p *MonteCarloPricer) Derive(stream uint64) *MonteCarloPricer {
	return &MonteCarloPricer{
		seed: p.seed,
		rng:  rand.New(rand.NewPCG(p.seed, stream+1)),
	}
}

// Sample 抽取 n 个独立标准正态随机数
func (p *MonteCarloPricer) Sample(n int) (NormalSample, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: path count must be positive, got %d", ErrInvalidSimulationConfig, n)
	}
	z := make(NormalSample, n)
	for i := range z {
		z[i] = p.rng.NormFloat64()
	}
	return z, nil
}

// terminalPrice 几何布朗运动下的到期价格：
// S_T = S·exp((r - q - σ²/2)·T + σ·√T·Z)
func terminalPrice(spec OptionSpec, z float64) float64 {
	drift := (spec.R - spec.Q - 0.5*spec.Sigma*spec.Sigma) * spec.T
	diffusion := spec.Sigma * math.Sqrt(spec.T)
	return spec.S * math.Exp(drift+diffusion*z)
}

// payoff 到期收益，虚值归零
func payoff(spec OptionSpec, terminal float64) float64 {
	if spec.IsCall() {
		return math.Max(terminal-spec.K, 0)
	}
	return math.Max(spec.K-terminal, 0)
}

// PriceWithSample 对给定样本的纯函数定价：贴现后的平均到期收益。
// 样本不被修改，同一样本可在多个估计量之间复用。
func PriceWithSample(spec OptionSpec, sample NormalSample) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if len(sample) == 0 {
		return 0, fmt.Errorf("%w: empty sample", ErrInvalidSimulationConfig)
	}

	var sum float64
	for _, z := range sample {
		sum += payoff(spec, terminalPrice(spec, z))
	}
	return math.Exp(-spec.R*spec.T) * sum / float64(len(sample)), nil
}

// Price 抽取 paths 条独立路径并估计期权价格。
// 这是无偏统计估计量：相同输入、独立抽样的多次调用结果不同，
// 方差随 1/paths 下降。
func (p *MonteCarloPricer) Price(spec OptionSpec, paths int) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	sample, err := p.Sample(paths)
	if err != nil {
		return 0, err
	}
	return PriceWithSample(spec, sample)
}

// ConvergenceSeries 按给定的路径数序列逐点独立估价，
// 输出顺序与输入顺序一致，用于观察价格随路径数的稳定过程。
func (p *MonteCarloPricer) ConvergenceSeries(spec OptionSpec, pathCounts []int) ([]ConvergencePoint, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(pathCounts) == 0 {
		return nil, fmt.Errorf("%w: empty path count sequence", ErrInvalidSimulationConfig)
	}

	series := make([]ConvergencePoint, 0, len(pathCounts))
	for _, n := range pathCounts {
		price, err := p.Price(spec, n)
		if err != nil {
			return nil, err
		}
		series = append(series, ConvergencePoint{Paths: n, Price: price})
	}
	return series, nil
}
