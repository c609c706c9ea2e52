// Package metrics exposes booking counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	attempts        *prometheus.CounterVec
	tasksClaimed    prometheus.Counter
	tasksRearmed    prometheus.Counter
	tasksFinished   *prometheus.CounterVec
	captchaRounds   *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	sessionsOpen    prometheus.Gauge
	poolCapacity    prometheus.Gauge
	poolActive      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg. A nil reg gets a private registry,
// which is what tests use to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_attempts_total",
				Help: "Booking attempts by outcome (success or error kind)",
			},
			[]string{"outcome"},
		),
		tasksClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_tasks_claimed_total",
			Help: "Tasks moved from pending to processing",
		}),
		tasksRearmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_tasks_rearmed_total",
			Help: "Failed attempts scheduled for another try",
		}),
		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_tasks_finished_total",
				Help: "Tasks that reached a terminal status",
			},
			[]string{"status"},
		),
		captchaRounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_captcha_rounds_total",
				Help: "CAPTCHA rounds by result",
			},
			[]string{"result"},
		),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_attempt_duration_seconds",
			Help:    "Wall time of one browser attempt",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300},
		}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_interactive_sessions_open",
			Help: "Interactive search sessions holding a browser",
		}),
		poolCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_worker_pool_capacity",
			Help: "Concurrent attempts allowed",
		}),
		poolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_worker_pool_active",
			Help: "Attempts currently running",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.attempts,
		m.tasksClaimed,
		m.tasksRearmed,
		m.tasksFinished,
		m.captchaRounds,
		m.attemptDuration,
		m.sessionsOpen,
		m.poolCapacity,
		m.poolActive,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Attempt(outcome string, took time.Duration) {
	m.attempts.WithLabelValues(outcome).Inc()
	m.attemptDuration.Observe(took.Seconds())
}

func (m *Metrics) Claimed()                { m.tasksClaimed.Inc() }
func (m *Metrics) Rearmed()                { m.tasksRearmed.Inc() }
func (m *Metrics) Finished(status string)  { m.tasksFinished.WithLabelValues(status).Inc() }
func (m *Metrics) CaptchaRound(res string) { m.captchaRounds.WithLabelValues(res).Inc() }
func (m *Metrics) SessionOpened()          { m.sessionsOpen.Inc() }
func (m *Metrics) SessionClosed()          { m.sessionsOpen.Dec() }
func (m *Metrics) PoolCapacity(n int)      { m.poolCapacity.Set(float64(n)) }
func (m *Metrics) PoolAcquired()           { m.poolActive.Inc() }
func (m *Metrics) PoolReleased()           { m.poolActive.Dec() }
