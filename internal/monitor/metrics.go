package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus instruments for the decision loop. All registered on the default
// registry; Handler exposes them.
var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daytrade_cycles_total",
		Help: "Decision cycles completed.",
	})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrade_decisions_total",
		Help: "Ensemble decisions by verdict.",
	}, []string{"verdict"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrade_intents_total",
		Help: "Trade intents by final status.",
	}, []string{"status"})

	CheckRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrade_check_rejections_total",
		Help: "Guardrail rejections by check id.",
	}, []string{"check"})

	ClosuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daytrade_closures_total",
		Help: "Position closures by exit reason.",
	}, []string{"reason"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrade_open_positions",
		Help: "Currently open positions.",
	})

	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrade_realized_pnl",
		Help: "Realized PnL for the current day.",
	})

	LossBudgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrade_loss_budget_remaining",
		Help: "Remaining daily loss budget.",
	})

	SafeModeActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daytrade_safe_mode_active",
		Help: "1 while safe mode is active.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "daytrade_cycle_duration_seconds",
		Help:    "Wall time of one decision cycle.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler { return promhttp.Handler() }
