package market

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a thread-safe read-only view of the engine, updated from
// the loop goroutine and read from HTTP handlers and tests.
type Metrics struct {
	Tick uint64 `json:"tick"`

	Sessions        int `json:"sessions"`
	Crops           int `json:"crops"`
	Offers          int `json:"offers"`
	StorageRequests int `json:"storage_requests"`
	DeployedUnits   int `json:"deployed_units"`
	BarterListings  int `json:"barter_listings"`
	BarterRequests  int `json:"barter_requests"`
	Tasks           int `json:"tasks"`
	PendingReplies  int `json:"pending_replies"`

	Balance int     `json:"balance"`
	StepMS  float64 `json:"step_ms"`
	Digest  string  `json:"digest"`
}

func (m *Market) Metrics() Metrics {
	if m == nil {
		return Metrics{}
	}
	v := m.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	mm, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return mm
}

var (
	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshvault",
		Name:      "ops_total",
		Help:      "Facade operations applied, by op type and outcome.",
	}, []string{"op", "outcome"})

	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshvault",
		Name:      "notifications_total",
		Help:      "Notifications dispatched, by receiving role.",
	}, []string{"role"})

	stepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "freshvault",
		Name:      "step_duration_seconds",
		Help:      "Engine tick duration.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
)

// RegisterPrometheus registers the engine collectors on reg. Call at
// most once per registry.
func RegisterPrometheus(reg prometheus.Registerer) {
	reg.MustRegister(opsTotal, notificationsTotal, stepDuration)
}
