// Package metrics 提供定价引擎的 Prometheus 指标集合
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// 定价请求计数，按定价模型区分
	PricingRequestsTotal *prometheus.CounterVec
	// 定价耗时，按定价模型区分
	PricingDuration *prometheus.HistogramVec
	// 希腊字母计算计数，按计算方法区分
	GreeksRequestsTotal *prometheus.CounterVec
	// 隐含波动率求解计数，按结果区分（converged / failed）
	IVSolvesTotal *prometheus.CounterVec
	// 隐含波动率求解迭代次数分布
	IVIterations prometheus.Histogram
	// 已模拟的蒙特卡洛路径总数
	MonteCarloPathsTotal prometheus.Counter
	// 已发布的领域事件计数，按事件类型区分
	EventsPublishedTotal *prometheus.CounterVec
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		PricingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "requests_total",
			Help:      "Total option pricing requests",
		}, []string{"model"}),
		PricingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "request_duration_seconds",
			Help:      "Option pricing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		GreeksRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "greeks_requests_total",
			Help:      "Total greeks calculation requests",
		}, []string{"method"}),
		IVSolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "iv_solves_total",
			Help:      "Total implied volatility solve attempts",
		}, []string{"outcome"}),
		IVIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "iv_iterations",
			Help:      "Iterations used per implied volatility solve",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		MonteCarloPathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "monte_carlo_paths_total",
			Help:      "Total Monte Carlo paths simulated",
		}),
		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricing",
			Subsystem: serviceName,
			Name:      "events_published_total",
			Help:      "Total domain events published",
		}, []string{"event_type"}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.PricingRequestsTotal,
		m.PricingDuration,
		m.GreeksRequestsTotal,
		m.IVSolvesTotal,
		m.IVIterations,
		m.MonteCarloPathsTotal,
		m.EventsPublishedTotal,
	}

	for _, collector := range collectors {
		if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
			slog.Error("failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	slog.Info("starting prometheus http server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			slog.Error("prometheus http server stopped", "error", err)
		}
	}()

	return nil
}
