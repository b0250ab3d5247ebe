package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TrendSentinel/pkg/logger"
)

// Metrics holds all Prometheus metrics of the batch runner.
type Metrics struct {
	RunsTotal    prometheus.Counter
	RunDuration  prometheus.Histogram
	JobsTotal    *prometheus.CounterVec // labels: interval, outcome=ok|skipped|failed
	FetchDur     *prometheus.HistogramVec
	SimulateDur  prometheus.Histogram
	TradesTotal  *prometheus.CounterVec // labels: interval, direction
	RecentProfit *prometheus.GaugeVec   // labels: symbol, interval
	NotifyErrors prometheus.Counter
	LastRunTime  prometheus.Gauge
	ScanAlerts   *prometheus.CounterVec // labels: check=between_mas|rsi|kdj
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsentinel_runs_total",
			Help: "Total batch runs",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsentinel_run_duration_seconds",
			Help:    "Wall time of a full batch",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsentinel_jobs_total",
			Help: "Symbol/interval simulations by outcome",
		}, []string{"interval", "outcome"}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendsentinel_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"fetcher"}),
		SimulateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsentinel_simulate_duration_seconds",
			Help:    "Indicator computation plus backtest latency per job",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsentinel_trades_total",
			Help: "Simulated trades closed",
		}, []string{"interval", "direction"}),
		RecentProfit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trendsentinel_recent_profit",
			Help: "Leveraged profit of trades inside the recency window",
		}, []string{"symbol", "interval"}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsentinel_notify_errors_total",
			Help: "Failed digest deliveries",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendsentinel_last_run_timestamp_seconds",
			Help: "Unix time of the last completed batch",
		}),
		ScanAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsentinel_scan_alerts_total",
			Help: "Symbols flagged by the indicator scanner",
		}, []string{"check"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.JobsTotal,
		m.FetchDur,
		m.SimulateDur,
		m.TradesTotal,
		m.RecentProfit,
		m.NotifyErrors,
		m.LastRunTime,
		m.ScanAlerts,
	)

	return m
}

// Serve exposes /metrics and /healthz on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
