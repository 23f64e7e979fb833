package application

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// recordingPublisher 记录收到的事件，供断言使用
type recordingPublisher struct {
	priced     []domain.OptionPricedEvent
	greeks     []domain.GreeksCalculatedEvent
	implied    []domain.ImpliedVolatilitySolvedEvent
	batches    []domain.BatchPricingCompletedEvent
}

func (p *recordingPublisher) PublishOptionPriced(_ context.Context, e domain.OptionPricedEvent) error {
	p.priced = append(p.priced, e)
	return nil
}

func (p *recordingPublisher) PublishGreeksCalculated(_ context.Context, e domain.GreeksCalculatedEvent) error {
	p.greeks = append(p.greeks, e)
	return nil
}

func (p *recordingPublisher) PublishImpliedVolatilitySolved(_ context.Context, e domain.ImpliedVolatilitySolvedEvent) error {
	p.implied = append(p.implied, e)
	return nil
}

func (p *recordingPublisher) PublishBatchPricingCompleted(_ context.Context, e domain.BatchPricingCompletedEvent) error {
	p.batches = append(p.batches, e)
	return nil
}

func oneYearOut() int64 {
	return time.Now().Add(365 * 24 * time.Hour).UnixMilli()
}

func atmCallCommand() PriceOptionCommand {
	return PriceOptionCommand{
		Symbol:          "AAPL-C-100",
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
	}
}

func TestPriceOption_BlackScholes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(pub, 1)

	result, err := svc.Command.PriceOption(context.Background(), atmCallCommand())
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	// T 由到期时间戳换算，与整一年有毫秒级偏差，容差放宽
	price := result.OptionPrice.InexactFloat64()
	if math.Abs(price-10.4506) > 0.01 {
		t.Fatalf("price out of range: %v", price)
	}
	if result.PricingModel != domain.ModelBlackScholes {
		t.Fatalf("default model mismatch: %v", result.PricingModel)
	}
	if len(pub.priced) != 1 {
		t.Fatalf("expected 1 OptionPriced event, got %d", len(pub.priced))
	}
	if pub.priced[0].Symbol != "AAPL-C-100" {
		t.Fatalf("event symbol mismatch: %v", pub.priced[0].Symbol)
	}
}

func TestPriceOption_MonteCarlo(t *testing.T) {
	svc := NewPricingService(nil, 42)

	cmd := atmCallCommand()
	cmd.PricingModel = string(domain.ModelMonteCarlo)
	cmd.Paths = 200_000

	result, err := svc.Command.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	price := result.OptionPrice.InexactFloat64()
	if math.Abs(price-10.4506) > 0.2 {
		t.Fatalf("monte carlo price too far from analytic: %v", price)
	}
	if result.PricingModel != domain.ModelMonteCarlo {
		t.Fatalf("model mismatch: %v", result.PricingModel)
	}
}

func TestPriceOption_Validation(t *testing.T) {
	svc := NewPricingService(nil, 1)
	ctx := context.Background()

	noSymbol := atmCallCommand()
	noSymbol.Symbol = ""
	if _, err := svc.Command.PriceOption(ctx, noSymbol); err == nil {
		t.Fatalf("expected error for missing symbol")
	}

	badType := atmCallCommand()
	badType.OptionType = "SWAP"
	if _, err := svc.Command.PriceOption(ctx, badType); err == nil {
		t.Fatalf("expected error for bad option type")
	}

	badModel := atmCallCommand()
	badModel.PricingModel = "Binomial"
	if _, err := svc.Command.PriceOption(ctx, badModel); err == nil {
		t.Fatalf("expected error for unsupported model")
	}

	badSpot := atmCallCommand()
	badSpot.UnderlyingPrice = -1
	if _, err := svc.Command.PriceOption(ctx, badSpot); err == nil {
		t.Fatalf("expected error for negative underlying")
	}
}

func TestBatchPriceOptions(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(pub, 1)

	good := atmCallCommand()
	bad := atmCallCommand()
	bad.OptionType = "INVALID"

	result, err := svc.Command.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		BatchID:   "batch-1",
		Contracts: []PriceOptionCommand{good, bad, good},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 1 {
		t.Fatalf("counts mismatch: success=%d failure=%d", result.SuccessCount, result.FailureCount)
	}
	if len(result.Results) != 2 {
		t.Fatalf("results length mismatch: %d", len(result.Results))
	}
	if len(pub.batches) != 1 || pub.batches[0].TotalOptions != 3 {
		t.Fatalf("batch event mismatch: %+v", pub.batches)
	}

	if _, err := svc.Command.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{BatchID: "empty"}); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestGetGreeks_AnalyticDefault(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(pub, 1)

	greeks, err := svc.Query.GetGreeks(context.Background(), GreeksQuery{
		Symbol:          "AAPL-C-100",
		OptionType:      "call",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if math.Abs(greeks.Delta.InexactFloat64()-0.6368) > 0.001 {
		t.Fatalf("delta out of range: %v", greeks.Delta)
	}
	if len(pub.greeks) != 1 || pub.greeks[0].Method != "Analytic" {
		t.Fatalf("greeks event mismatch: %+v", pub.greeks)
	}
}

func TestGetGreeks_MonteCarlo(t *testing.T) {
	svc := NewPricingService(nil, 9)

	greeks, err := svc.Query.GetGreeks(context.Background(), GreeksQuery{
		OptionType:      "PUT",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		Method:          "MonteCarlo",
		Paths:           100_000,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if math.Abs(greeks.Delta.InexactFloat64()-(-0.3632)) > 0.02 {
		t.Fatalf("mc put delta out of range: %v", greeks.Delta)
	}

	if _, err := svc.Query.GetGreeks(context.Background(), GreeksQuery{
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		Method:          "Binomial",
	}); err == nil {
		t.Fatalf("expected error for unsupported method")
	}
}

func TestSolveImpliedVolatility_Query(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(pub, 1)
	expiry := oneYearOut()

	// 市场价取 σ=0.25 的模型价，反解应还原
	cmd := atmCallCommand()
	cmd.ExpiryDate = expiry
	cmd.Volatility = 0.25
	priced, err := svc.Command.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("price err: %v", err)
	}

	dto, err := svc.Query.SolveImpliedVolatility(context.Background(), ImpliedVolatilityQuery{
		Symbol:          "AAPL-C-100",
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      expiry,
		UnderlyingPrice: 100,
		RiskFreeRate:    0.05,
		MarketPrice:     priced.OptionPrice.InexactFloat64(),
	})
	if err != nil {
		t.Fatalf("solve err: %v", err)
	}
	if math.Abs(dto.ImpliedVolatility-0.25) > 1e-3 {
		t.Fatalf("implied vol mismatch: %v", dto.ImpliedVolatility)
	}
	if len(pub.implied) != 1 {
		t.Fatalf("expected 1 ImpliedVolatilitySolved event, got %d", len(pub.implied))
	}

	// 无解的市场价向上传递领域错误
	if _, err := svc.Query.SolveImpliedVolatility(context.Background(), ImpliedVolatilityQuery{
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      expiry,
		UnderlyingPrice: 100,
		RiskFreeRate:    0.05,
		MarketPrice:     500,
	}); err == nil {
		t.Fatalf("expected no-convergence error")
	}
}

func TestGetConvergence(t *testing.T) {
	svc := NewPricingService(nil, 5)
	pathCounts := []int{1_000, 10_000, 50_000}

	dto, err := svc.Query.GetConvergence(context.Background(), ConvergenceQuery{
		Symbol:          "AAPL-C-100",
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		PathCounts:      pathCounts,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(dto.Points) != len(pathCounts) {
		t.Fatalf("points length mismatch: %d", len(dto.Points))
	}
	for i, point := range dto.Points {
		if point.Paths != pathCounts[i] {
			t.Fatalf("order broken at %d: got %d want %d", i, point.Paths, pathCounts[i])
		}
	}
	if math.Abs(dto.AnalyticPrice-10.4506) > 0.01 {
		t.Fatalf("analytic reference out of range: %v", dto.AnalyticPrice)
	}
	if dto.MaxAbsError < dto.FinalAbsError {
		t.Fatalf("max error below final error: max=%v final=%v", dto.MaxAbsError, dto.FinalAbsError)
	}
	if dto.StdDev < 0 {
		t.Fatalf("negative stddev: %v", dto.StdDev)
	}

	if _, err := svc.Query.GetConvergence(context.Background(), ConvergenceQuery{
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
	}); err == nil {
		t.Fatalf("expected error for missing path counts")
	}
}

func TestComparePrices(t *testing.T) {
	svc := NewPricingService(nil, 7)

	dto, err := svc.Query.ComparePrices(context.Background(), ComparePricesQuery{
		Symbol:          "AAPL-C-100",
		OptionType:      "CALL",
		StrikePrice:     100,
		ExpiryDate:      oneYearOut(),
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		Paths:           200_000,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if dto.AbsDiff > 0.2 {
		t.Fatalf("models diverge too much: analytic=%v mc=%v", dto.AnalyticPrice, dto.MonteCarloPrice)
	}
	if math.Abs(dto.AbsDiff-math.Abs(dto.MonteCarloPrice-dto.AnalyticPrice)) > 1e-12 {
		t.Fatalf("abs diff inconsistent")
	}
	if dto.Paths != 200_000 {
		t.Fatalf("paths not echoed: %d", dto.Paths)
	}
}

func TestQueriesHonorContextCancellation(t *testing.T) {
	svc := NewPricingService(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Query.GetGreeks(ctx, GreeksQuery{OptionType: "CALL"}); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := svc.Command.BatchPriceOptions(ctx, BatchPriceOptionsCommand{
		Contracts: []PriceOptionCommand{atmCallCommand()},
	}); err == nil {
		t.Fatalf("expected context error")
	}
}
