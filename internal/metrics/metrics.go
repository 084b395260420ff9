package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chinelivre_notifications_total",
			Help: "Notification lifecycle counter by stage and type",
		},
		[]string{"stage", "type"}, // created|fanned_out|relayed|relay_failed , package_created|status_updated|...
	)

	PackagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chinelivre_packages_total",
			Help: "Package lifecycle counter by status",
		},
		[]string{"status"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		NotificationsTotal,
		PackagesTotal,
	)
}
