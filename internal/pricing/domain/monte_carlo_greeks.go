package domain

import (
	"fmt"
	"math"
)

// SimulationConfig 蒙特卡洛希腊字母的模拟参数。
// 每次调用时创建、立即消费，不被保留。
type SimulationConfig struct {
	Paths    int     // 模拟路径数
	BumpSize float64 // gamma 有限差分的价格扰动 h
	TimeStep float64 // theta 有限差分的时间增量 dt
}

// minTimeToExpiry theta 差分中 T-dt 的下限，防止到期时间归零或为负
const minTimeToExpiry = 1e-8

// Validate 校验模拟参数：路径数与两个差分步长均必须严格为正
func (cfg SimulationConfig) Validate() error {
	if cfg.Paths <= 0 {
		return fmt.Errorf("%w: path count must be positive, got %d", ErrInvalidSimulationConfig, cfg.Paths)
	}
	if cfg.BumpSize <= 0 {
		return fmt.Errorf("%w: bump size must be positive, got %v", ErrInvalidSimulationConfig, cfg.BumpSize)
	}
	if cfg.TimeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %v", ErrInvalidSimulationConfig, cfg.TimeStep)
	}
	return nil
}

// CalculateGreeks 用蒙特卡洛模拟估计希腊字母。
//
// 所有估计量共享同一份正态样本：delta/vega/rho 为路径导数估计量，
// 直接在基准到期价格上求均值；gamma 对现价做 ±h 中心差分、theta 对
// 到期时间做前向差分，两者都用同一样本重新估价，消除估计量间的抽样噪声，
// 也使相同种子下的整组结果可复现。
func (p *MonteCarloPricer) CalculateGreeks(spec OptionSpec, cfg SimulationConfig) (*Greeks, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sample, err := p.Sample(cfg.Paths)
	if err != nil {
		return nil, err
	}

	basePrice, err := PriceWithSample(spec, sample)
	if err != nil {
		return nil, err
	}

	var g greekSet
	g.delta, g.vega, g.rho = pathwiseGreeks(spec, sample)

	// gamma：现价 ±h 的中心差分，复用同一样本
	up, err := PriceWithSample(bumpSpot(spec, cfg.BumpSize), sample)
	if err != nil {
		return nil, err
	}
	down, err := PriceWithSample(bumpSpot(spec, -cfg.BumpSize), sample)
	if err != nil {
		return nil, err
	}
	g.gamma = (up - 2*basePrice + down) / (cfg.BumpSize * cfg.BumpSize)

	// theta：T-dt 处的前向差分，到期时间以 minTimeToExpiry 为下限
	shortSpec := spec
	shortSpec.T = math.Max(spec.T-cfg.TimeStep, minTimeToExpiry)
	shortPrice, err := PriceWithSample(shortSpec, sample)
	if err != nil {
		return nil, err
	}
	g.theta = (shortPrice - basePrice) / cfg.TimeStep

	return g.toGreeks(), nil
}

// bumpSpot 返回现价扰动 h 后的参数副本
func bumpSpot(spec OptionSpec, h float64) OptionSpec {
	spec.S += h
	return spec
}

// pathwiseGreeks 路径导数估计量：示性函数（路径是否实值）乘以
// 收益对参数的敏感度因子，贴现后取均值。看跌期权的示性条件与符号相反。
// vega 与解析解一致按 1% 波动率变动缩放。
func pathwiseGreeks(spec OptionSpec, sample NormalSample) (delta, vega, rho float64) {
	disc := math.Exp(-spec.R * spec.T)
	sqrtT := math.Sqrt(spec.T)
	n := float64(len(sample))

	var deltaSum, vegaSum, rhoSum float64
	for _, z := range sample {
		terminal := terminalPrice(spec, z)
		if spec.IsCall() {
			if terminal > spec.K {
				deltaSum += terminal / spec.S
				vegaSum += terminal * sqrtT * z
				rhoSum += terminal * spec.T
			}
		} else {
			if terminal < spec.K {
				deltaSum -= terminal / spec.S
				vegaSum -= terminal * sqrtT * z
				rhoSum -= terminal * spec.T
			}
		}
	}

	delta = disc * deltaSum / n
	vega = disc * vegaSum / n / 100
	rho = disc * rhoSum / n
	return delta, vega, rho
}
