// Package metrics registers the handler's prometheus counters against a
// private registry, in the manner of weed/stats/metrics.go's Namespace /
// Subsystem constants. Registration happens once per process; the handler
// itself only ever calls IncPartialReplication, never touches prometheus
// directly, keeping the metrics registry an explicit collaborator rather
// than an ambient singleton.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "scm"
	subsystem = "replication_manager"
)

// Recorder is the handler's view onto the metrics registry: a single
// monotonic counter labeled by container lifecycle state, so
// partial-replication pressure can be attributed to CLOSED vs.
// QUASI_CLOSED containers.
type Recorder struct {
	partialReplicationTotal *prometheus.CounterVec
}

// NewRecorder creates and registers the handler's metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with other
// registrations in the same process.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		partialReplicationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "partial_replication_total",
				Help:      "Count of reconciliations that obtained fewer targets than required.",
			}, []string{"lifecycle"}),
	}
	reg.MustRegister(r.partialReplicationTotal)
	return r
}

// IncPartialReplication increments the partial-replication counter for the
// given container lifecycle state.
func (r *Recorder) IncPartialReplication(lifecycle string) {
	r.partialReplicationTotal.WithLabelValues(lifecycle).Inc()
}
