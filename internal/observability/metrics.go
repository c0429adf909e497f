// README: Prometheus counters for the mission and transition workflows.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransitionsTotal counts successful parcel status transitions by target.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_parcel_transitions_total",
		Help: "Successful parcel status transitions, labeled by target status.",
	}, []string{"to"})

	// MissionsCreatedTotal counts created missions by kind.
	MissionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_missions_created_total",
		Help: "Missions created, labeled by kind.",
	}, []string{"kind"})

	// VerificationsTotal counts delivery verification attempts by outcome.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_delivery_verifications_total",
		Help: "Delivery verification attempts, labeled by outcome.",
	}, []string{"outcome"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
