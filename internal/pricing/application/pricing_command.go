package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingCommandService 处理定价相关的命令操作，
// 定价完成后通过事件发布器对外广播领域事件。
type PricingCommandService struct {
	publisher domain.EventPublisher
	seed      uint64
	stream    atomic.Uint64
}

// NewPricingCommandService 创建新的 PricingCommandService 实例。
// seed 决定蒙特卡洛定价的随机源，相同种子下服务行为可复现。
func NewPricingCommandService(publisher domain.EventPublisher, seed uint64) *PricingCommandService {
	return &PricingCommandService{
		publisher: publisher,
		seed:      seed,
	}
}

// mcPricer 为每次请求派生独立随机流的定价器。
// 定价器本身不支持并发，派生保证并发请求之间样本互不重叠。
func (c *PricingCommandService) mcPricer() *domain.MonteCarloPricer {
	return domain.NewMonteCarloPricer(c.seed).Derive(c.stream.Add(1))
}

// specFromCommand 将命令参数换算为定价输入
func specFromCommand(cmd PriceOptionCommand) (domain.OptionSpec, error) {
	optionType, err := domain.ParseOptionType(cmd.OptionType)
	if err != nil {
		return domain.OptionSpec{}, err
	}
	spec := domain.OptionSpec{
		S:     cmd.UnderlyingPrice,
		K:     cmd.StrikePrice,
		T:     yearsToExpiry(cmd.ExpiryDate),
		R:     cmd.RiskFreeRate,
		Sigma: cmd.Volatility,
		Q:     cmd.DividendYield,
		Type:  optionType,
	}
	if err := spec.Validate(); err != nil {
		return domain.OptionSpec{}, err
	}
	return spec, nil
}

// PriceOption 期权定价。根据命令指定的模型选择解析解或蒙特卡洛模拟。
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	if cmd.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if cmd.PricingModel == "" {
		cmd.PricingModel = string(domain.ModelBlackScholes)
	}

	spec, err := specFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	model := domain.PricingModel(cmd.PricingModel)
	var price float64
	switch model {
	case domain.ModelBlackScholes:
		price, err = domain.BlackScholesPrice(spec)
	case domain.ModelMonteCarlo:
		paths := cmd.Paths
		if paths <= 0 {
			paths = defaultMonteCarloPaths
		}
		price, err = c.mcPricer().Price(spec, paths)
	default:
		return nil, fmt.Errorf("unsupported pricing model: %s", cmd.PricingModel)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.PricingResult{
		Symbol:          cmd.Symbol,
		OptionPrice:     decimal.NewFromFloat(price),
		UnderlyingPrice: decimal.NewFromFloat(cmd.UnderlyingPrice),
		PricingModel:    model,
		CalculatedAt:    time.Now().Unix(),
	}

	if c.publisher != nil {
		event := domain.OptionPricedEvent{
			Symbol:          cmd.Symbol,
			OptionType:      spec.Type,
			StrikePrice:     cmd.StrikePrice,
			TimeToExpiry:    spec.T,
			OptionPrice:     price,
			UnderlyingPrice: cmd.UnderlyingPrice,
			Volatility:      cmd.Volatility,
			RiskFreeRate:    cmd.RiskFreeRate,
			DividendYield:   cmd.DividendYield,
			PricingModel:    model,
			CalculatedAt:    result.CalculatedAt,
			OccurredOn:      time.Now(),
		}
		if err := c.publisher.PublishOptionPriced(ctx, event); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// BatchPriceOptions 批量定价。逐份合约定价，单份失败不中断整批，
// 完成后发布批量汇总事件。
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if len(cmd.Contracts) == 0 {
		return nil, errors.New("batch contains no contracts")
	}

	results := make([]*domain.PricingResult, 0, len(cmd.Contracts))
	successCount := 0
	failureCount := 0
	totalTime := 0.0

	for _, contract := range cmd.Contracts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		startTime := time.Now()
		result, err := c.PriceOption(ctx, contract)
		totalTime += time.Since(startTime).Seconds()

		if err != nil {
			failureCount++
			continue
		}
		results = append(results, result)
		successCount++
	}

	avg := totalTime / float64(len(cmd.Contracts))

	if c.publisher != nil {
		_ = c.publisher.PublishBatchPricingCompleted(ctx, domain.BatchPricingCompletedEvent{
			BatchID:      cmd.BatchID,
			TotalOptions: len(cmd.Contracts),
			SuccessCount: successCount,
			FailureCount: failureCount,
			AverageTime:  avg,
			CompletedAt:  time.Now().Unix(),
			OccurredOn:   time.Now(),
		})
	}

	return &BatchPricingResult{
		BatchID:      cmd.BatchID,
		Results:      results,
		SuccessCount: successCount,
		FailureCount: failureCount,
		AverageTime:  avg,
	}, nil
}
