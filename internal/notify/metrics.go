package notify

import "github.com/prometheus/client_golang/prometheus"

const (
	resultOK        = "ok"
	resultError     = "error"
	resultDuplicate = "duplicate"
)

var published = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "donor_notifications_total",
		Help: "Donor notifications by result (ok|error|duplicate).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(published)
}
