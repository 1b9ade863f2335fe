package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_sends_total",
			Help: "Total newsletter emails delivered",
		},
	)

	SendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_send_failures_total",
			Help: "Total newsletter emails that failed to send",
		},
	)

	Firings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_firings_total",
			Help: "Scheduled newsletter firings by result",
		},
		[]string{"result"},
	)

	Expired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_expired_total",
			Help: "Newsletters retired because their finish time passed",
		},
	)

	ScheduledTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newsletter_scheduled_tasks",
			Help: "Periodic tasks currently registered with the trigger runtime",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smtp_circuit_breaker_state",
			Help: "SMTP circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func Init() {
	prometheus.MustRegister(SendsTotal)
	prometheus.MustRegister(SendFailures)
	prometheus.MustRegister(Firings)
	prometheus.MustRegister(Expired)
	prometheus.MustRegister(ScheduledTasks)
	prometheus.MustRegister(BreakerState)
}
