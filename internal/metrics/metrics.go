package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_generated_total", Help: "Candidate signals selected by the arbiter"},
		[]string{"strategy", "symbol"},
	)
	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_rejected_total", Help: "Selected signals rejected by risk validation"},
		[]string{"symbol"},
	)
	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_executed_total", Help: "Market orders submitted"},
		[]string{"strategy", "symbol", "side"},
	)
	TradesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_resolved_total", Help: "Closed trades with a recorded outcome"},
		[]string{"strategy", "result"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Currently open positions"},
	)
	AccountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "account_balance", Help: "Last observed account balance"},
	)
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_cycle_seconds",
			Help:    "Per-symbol analysis cycle duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsGenerated,
		SignalsRejected,
		TradesExecuted,
		TradesResolved,
		OpenPositions,
		AccountBalance,
		AnalysisDuration,
	)
}

// Serve exposes /metrics on the given address and returns the server for
// shutdown
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
