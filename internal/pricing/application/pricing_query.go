package application

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"golang.org/x/sync/errgroup"
)

// PricingQueryService 处理所有定价相关的查询操作（Queries）。
// 查询本身无副作用，计算完成后以尽力而为的方式发布事件。
type PricingQueryService struct {
	publisher domain.EventPublisher
	seed      uint64
	stream    atomic.Uint64
}

// NewPricingQueryService 构造函数。
func NewPricingQueryService(publisher domain.EventPublisher, seed uint64) *PricingQueryService {
	return &PricingQueryService{
		publisher: publisher,
		seed:      seed,
	}
}

func (s *PricingQueryService) mcPricer() *domain.MonteCarloPricer {
	return domain.NewMonteCarloPricer(s.seed).Derive(s.stream.Add(1))
}

func specFromGreeksQuery(qry GreeksQuery) (domain.OptionSpec, error) {
	optionType, err := domain.ParseOptionType(qry.OptionType)
	if err != nil {
		return domain.OptionSpec{}, err
	}
	spec := domain.OptionSpec{
		S:     qry.UnderlyingPrice,
		K:     qry.StrikePrice,
		T:     yearsToExpiry(qry.ExpiryDate),
		R:     qry.RiskFreeRate,
		Sigma: qry.Volatility,
		Q:     qry.DividendYield,
		Type:  optionType,
	}
	if err := spec.Validate(); err != nil {
		return domain.OptionSpec{}, err
	}
	return spec, nil
}

// GetGreeks 计算希腊字母。Method 为空或 Analytic 时使用解析解，
// MonteCarlo 时使用路径导数加有限差分的模拟估计。
func (s *PricingQueryService) GetGreeks(ctx context.Context, qry GreeksQuery) (*domain.Greeks, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	spec, err := specFromGreeksQuery(qry)
	if err != nil {
		return nil, err
	}

	method := qry.Method
	if method == "" {
		method = "Analytic"
	}

	var greeks *domain.Greeks
	switch method {
	case "Analytic":
		greeks, err = domain.CalculateGreeks(spec)
	case "MonteCarlo":
		cfg := domain.SimulationConfig{
			Paths:    qry.Paths,
			BumpSize: qry.BumpSize,
			TimeStep: qry.TimeStep,
		}
		if cfg.Paths <= 0 {
			cfg.Paths = defaultMonteCarloPaths
		}
		if cfg.BumpSize <= 0 {
			cfg.BumpSize = spec.S * defaultBumpRatio
		}
		if cfg.TimeStep <= 0 {
			cfg.TimeStep = defaultTimeStep
		}
		greeks, err = s.mcPricer().CalculateGreeks(spec, cfg)
	default:
		return nil, errors.New("unsupported greeks method: " + method)
	}
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishGreeksCalculated(ctx, domain.GreeksCalculatedEvent{
			Symbol:          qry.Symbol,
			OptionType:      spec.Type,
			StrikePrice:     qry.StrikePrice,
			TimeToExpiry:    spec.T,
			UnderlyingPrice: qry.UnderlyingPrice,
			Method:          method,
			Delta:           greeks.Delta.InexactFloat64(),
			Gamma:           greeks.Gamma.InexactFloat64(),
			Theta:           greeks.Theta.InexactFloat64(),
			Vega:            greeks.Vega.InexactFloat64(),
			Rho:             greeks.Rho.InexactFloat64(),
			CalculatedAt:    time.Now().Unix(),
			OccurredOn:      time.Now(),
		})
	}
	return greeks, nil
}

// SolveImpliedVolatility 由市场价格反解隐含波动率
func (s *PricingQueryService) SolveImpliedVolatility(ctx context.Context, qry ImpliedVolatilityQuery) (*ImpliedVolatilityDTO, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	optionType, err := domain.ParseOptionType(qry.OptionType)
	if err != nil {
		return nil, err
	}
	spec := domain.OptionSpec{
		S:    qry.UnderlyingPrice,
		K:    qry.StrikePrice,
		T:    yearsToExpiry(qry.ExpiryDate),
		R:    qry.RiskFreeRate,
		Q:    qry.DividendYield,
		Type: optionType,
	}

	tolerance := qry.Tolerance
	if tolerance <= 0 {
		tolerance = defaultIVTolerance
	}
	maxIter := qry.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultIVMaxIterations
	}

	result, err := domain.SolveImpliedVolatility(spec, qry.MarketPrice, tolerance, maxIter)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishImpliedVolatilitySolved(ctx, domain.ImpliedVolatilitySolvedEvent{
			Symbol:            qry.Symbol,
			OptionType:        spec.Type,
			StrikePrice:       qry.StrikePrice,
			TimeToExpiry:      spec.T,
			UnderlyingPrice:   qry.UnderlyingPrice,
			MarketPrice:       qry.MarketPrice,
			ImpliedVolatility: result.Sigma,
			Iterations:        result.Iterations,
			UsedNewton:        result.UsedNewton,
			OccurredOn:        time.Now(),
		})
	}

	return &ImpliedVolatilityDTO{
		Symbol:            qry.Symbol,
		ImpliedVolatility: result.Sigma,
		Iterations:        result.Iterations,
		UsedNewton:        result.UsedNewton,
	}, nil
}

// GetConvergence 计算蒙特卡洛收敛序列并给出诊断统计。
// 各路径数的估价相互独立，按派生随机流并行执行，输出顺序与请求一致。
func (s *PricingQueryService) GetConvergence(ctx context.Context, qry ConvergenceQuery) (*ConvergenceDTO, error) {
	optionType, err := domain.ParseOptionType(qry.OptionType)
	if err != nil {
		return nil, err
	}
	spec := domain.OptionSpec{
		S:     qry.UnderlyingPrice,
		K:     qry.StrikePrice,
		T:     yearsToExpiry(qry.ExpiryDate),
		R:     qry.RiskFreeRate,
		Sigma: qry.Volatility,
		Q:     qry.DividendYield,
		Type:  optionType,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(qry.PathCounts) == 0 {
		return nil, errors.New("path counts are required")
	}

	analytic, err := domain.BlackScholesPrice(spec)
	if err != nil {
		return nil, err
	}

	base := domain.NewMonteCarloPricer(s.seed)
	points := make([]domain.ConvergencePoint, len(qry.PathCounts))

	g, gctx := errgroup.WithContext(ctx)
	for i, paths := range qry.PathCounts {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			price, err := base.Derive(uint64(i)).Price(spec, paths)
			if err != nil {
				return err
			}
			points[i] = domain.ConvergencePoint{Paths: paths, Price: price}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prices := make([]float64, len(points))
	maxAbsError := 0.0
	for i, point := range points {
		prices[i] = point.Price
		if e := math.Abs(point.Price - analytic); e > maxAbsError {
			maxAbsError = e
		}
	}
	mean, err := stats.Mean(prices)
	if err != nil {
		return nil, err
	}
	stdDev := 0.0
	if len(prices) > 1 {
		if stdDev, err = stats.StandardDeviationSample(prices); err != nil {
			return nil, err
		}
	}

	return &ConvergenceDTO{
		Symbol:        qry.Symbol,
		Points:        points,
		AnalyticPrice: analytic,
		MeanPrice:     mean,
		StdDev:        stdDev,
		MaxAbsError:   maxAbsError,
		FinalAbsError: math.Abs(points[len(points)-1].Price - analytic),
	}, nil
}

// ComparePrices 解析解与蒙特卡洛估计的并排对比
func (s *PricingQueryService) ComparePrices(ctx context.Context, qry ComparePricesQuery) (*PriceComparisonDTO, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	optionType, err := domain.ParseOptionType(qry.OptionType)
	if err != nil {
		return nil, err
	}
	spec := domain.OptionSpec{
		S:     qry.UnderlyingPrice,
		K:     qry.StrikePrice,
		T:     yearsToExpiry(qry.ExpiryDate),
		R:     qry.RiskFreeRate,
		Sigma: qry.Volatility,
		Q:     qry.DividendYield,
		Type:  optionType,
	}

	analytic, err := domain.BlackScholesPrice(spec)
	if err != nil {
		return nil, err
	}

	paths := qry.Paths
	if paths <= 0 {
		paths = defaultMonteCarloPaths
	}
	mc, err := s.mcPricer().Price(spec, paths)
	if err != nil {
		return nil, err
	}

	absDiff := math.Abs(mc - analytic)
	relDiff := 0.0
	if analytic != 0 {
		relDiff = absDiff / analytic
	}

	return &PriceComparisonDTO{
		Symbol:          qry.Symbol,
		AnalyticPrice:   analytic,
		MonteCarloPrice: mc,
		AbsDiff:         absDiff,
		RelDiff:         relDiff,
		Paths:           paths,
	}, nil
}
