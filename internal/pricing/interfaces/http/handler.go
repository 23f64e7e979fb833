package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/wyfcoding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/pkg/logging"
)

// HTTP 处理器
// 负责处理与期权定价相关的 HTTP 请求
type PricingHandler struct {
	svc *application.PricingService
	m   *metrics.Metrics // 可为 nil
}

// 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService, m *metrics.Metrics) *PricingHandler {
	return &PricingHandler{svc: svc, m: m}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/option/implied-volatility", h.SolveImpliedVolatility)
		api.POST("/option/convergence", h.GetConvergence)
		api.POST("/option/compare", h.ComparePrices)
		api.POST("/option/batch", h.BatchPriceOptions)
	}
}

// OptionContractRequest 期权合约请求
type OptionContractRequest struct {
	Symbol      string    `json:"symbol" binding:"required"`
	Type        string    `json:"type" binding:"required"`
	StrikePrice float64   `json:"strike_price" binding:"required"`
	ExpiryDate  time.Time `json:"expiry_date" binding:"required"`
}

// PricingRequest 定价请求
type PricingRequest struct {
	Contract        OptionContractRequest `json:"contract" binding:"required"`
	UnderlyingPrice float64               `json:"underlying_price" binding:"required"`
	Volatility      float64               `json:"volatility"`
	RiskFreeRate    float64               `json:"risk_free_rate"`
	DividendYield   float64               `json:"dividend_yield"`
	PricingModel    string                `json:"pricing_model"`
	Paths           int                   `json:"paths"`
}

// GreeksRequest 希腊字母请求
type GreeksRequest struct {
	Contract        OptionContractRequest `json:"contract" binding:"required"`
	UnderlyingPrice float64               `json:"underlying_price" binding:"required"`
	Volatility      float64               `json:"volatility"`
	RiskFreeRate    float64               `json:"risk_free_rate"`
	DividendYield   float64               `json:"dividend_yield"`
	Method          string                `json:"method"`
	Paths           int                   `json:"paths"`
	BumpSize        float64               `json:"bump_size"`
	TimeStep        float64               `json:"time_step"`
}

// ImpliedVolatilityRequest 隐含波动率请求
type ImpliedVolatilityRequest struct {
	Contract        OptionContractRequest `json:"contract" binding:"required"`
	UnderlyingPrice float64               `json:"underlying_price" binding:"required"`
	RiskFreeRate    float64               `json:"risk_free_rate"`
	DividendYield   float64               `json:"dividend_yield"`
	MarketPrice     float64               `json:"market_price" binding:"required"`
	Tolerance       float64               `json:"tolerance"`
	MaxIterations   int                   `json:"max_iterations"`
}

// ConvergenceRequest 收敛序列请求
type ConvergenceRequest struct {
	Contract        OptionContractRequest `json:"contract" binding:"required"`
	UnderlyingPrice float64               `json:"underlying_price" binding:"required"`
	Volatility      float64               `json:"volatility"`
	RiskFreeRate    float64               `json:"risk_free_rate"`
	DividendYield   float64               `json:"dividend_yield"`
	PathCounts      []int                 `json:"path_counts" binding:"required"`
}

// BatchPricingRequest 批量定价请求
type BatchPricingRequest struct {
	BatchID   string           `json:"batch_id" binding:"required"`
	Contracts []PricingRequest `json:"contracts" binding:"required,min=1"`
}

// statusFromError 领域错误到 HTTP 状态码的映射
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSpec),
		errors.Is(err, domain.ErrInvalidOptionType),
		errors.Is(err, domain.ErrInvalidSimulationConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoConvergence):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	start := time.Now()
	result, err := h.svc.Command.PriceOption(c.Request.Context(), toPriceCommand(req))
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to calculate option price", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	if h.m != nil {
		model := string(result.PricingModel)
		h.m.PricingRequestsTotal.WithLabelValues(model).Inc()
		h.m.PricingDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}

	response.Success(c, result)
}

// GetGreeks 获取希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req GreeksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	greeks, err := h.svc.Query.GetGreeks(c.Request.Context(), application.GreeksQuery{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		StrikePrice:     req.Contract.StrikePrice,
		ExpiryDate:      req.Contract.ExpiryDate.UnixMilli(),
		UnderlyingPrice: req.UnderlyingPrice,
		Volatility:      req.Volatility,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
		Method:          req.Method,
		Paths:           req.Paths,
		BumpSize:        req.BumpSize,
		TimeStep:        req.TimeStep,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to calculate Greeks", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	if h.m != nil {
		method := req.Method
		if method == "" {
			method = "Analytic"
		}
		h.m.GreeksRequestsTotal.WithLabelValues(method).Inc()
	}

	response.Success(c, gin.H{
		"symbol": req.Contract.Symbol,
		"greeks": greeks,
	})
}

// SolveImpliedVolatility 求解隐含波动率
func (h *PricingHandler) SolveImpliedVolatility(c *gin.Context) {
	var req ImpliedVolatilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Query.SolveImpliedVolatility(c.Request.Context(), application.ImpliedVolatilityQuery{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		StrikePrice:     req.Contract.StrikePrice,
		ExpiryDate:      req.Contract.ExpiryDate.UnixMilli(),
		UnderlyingPrice: req.UnderlyingPrice,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
		MarketPrice:     req.MarketPrice,
		Tolerance:       req.Tolerance,
		MaxIterations:   req.MaxIterations,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to solve implied volatility", "error", err)
		if h.m != nil && errors.Is(err, domain.ErrNoConvergence) {
			h.m.IVSolvesTotal.WithLabelValues("failed").Inc()
		}
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	if h.m != nil {
		h.m.IVSolvesTotal.WithLabelValues("converged").Inc()
		h.m.IVIterations.Observe(float64(dto.Iterations))
	}

	response.Success(c, dto)
}

// GetConvergence 获取蒙特卡洛收敛序列
func (h *PricingHandler) GetConvergence(c *gin.Context) {
	var req ConvergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Query.GetConvergence(c.Request.Context(), application.ConvergenceQuery{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		StrikePrice:     req.Contract.StrikePrice,
		ExpiryDate:      req.Contract.ExpiryDate.UnixMilli(),
		UnderlyingPrice: req.UnderlyingPrice,
		Volatility:      req.Volatility,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
		PathCounts:      req.PathCounts,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to compute convergence series", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	if h.m != nil {
		total := 0
		for _, paths := range req.PathCounts {
			total += paths
		}
		h.m.MonteCarloPathsTotal.Add(float64(total))
	}

	response.Success(c, dto)
}

// ComparePrices 解析解与蒙特卡洛对比
func (h *PricingHandler) ComparePrices(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Query.ComparePrices(c.Request.Context(), application.ComparePricesQuery{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		StrikePrice:     req.Contract.StrikePrice,
		ExpiryDate:      req.Contract.ExpiryDate.UnixMilli(),
		UnderlyingPrice: req.UnderlyingPrice,
		Volatility:      req.Volatility,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
		Paths:           req.Paths,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to compare pricing models", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	response.Success(c, dto)
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	contracts := make([]application.PriceOptionCommand, 0, len(req.Contracts))
	for _, contract := range req.Contracts {
		contracts = append(contracts, toPriceCommand(contract))
	}

	result, err := h.svc.Command.BatchPriceOptions(c.Request.Context(), application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: contracts,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to price batch", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}

	response.Success(c, result)
}

func toPriceCommand(req PricingRequest) application.PriceOptionCommand {
	return application.PriceOptionCommand{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		StrikePrice:     req.Contract.StrikePrice,
		ExpiryDate:      req.Contract.ExpiryDate.UnixMilli(),
		UnderlyingPrice: req.UnderlyingPrice,
		Volatility:      req.Volatility,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
		PricingModel:    req.PricingModel,
		Paths:           req.Paths,
	}
}
