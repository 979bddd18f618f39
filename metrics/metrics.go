package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	IssuesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gramaalert", Name: "issues_submitted_total", Help: "Number of issues written, by category."},
		[]string{"category"},
	)
	StatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gramaalert", Name: "issue_status_updates_total", Help: "Number of status updates, by whether the status changed."},
		[]string{"changed"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gramaalert", Name: "notifications_total", Help: "Email dispatch attempts by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gramaalert", Name: "rate_limit_rejected_total", Help: "Number of rejected submissions by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(IssuesSubmitted)
	reg.MustRegister(StatusUpdates)
	reg.MustRegister(Notifications)
	reg.MustRegister(RateLimitRejected)
}
