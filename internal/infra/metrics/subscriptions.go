package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
		trialsStartedTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Total number of subscription activations (first and renewal).",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry sweeps.",
		},
	)

	trialsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trials_started_total",
			Help: "Total number of trial subscriptions started.",
		},
	)
)

func IncSubscriptionsActivated() { subscriptionsActivatedTotal.Inc() }

func IncSubscriptionsExpired(count int) { subscriptionsExpiredTotal.Add(float64(count)) }

func IncTrialsStarted() { trialsStartedTotal.Inc() }
