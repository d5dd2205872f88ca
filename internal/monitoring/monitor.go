package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for a chat turn.
const (
	OutcomeSuccess      = "success"
	OutcomeUnrecognized = "unrecognized"
	OutcomeError        = "error"
)

// Monitor holds the metrics of the dispatcher and the provisioning calls.
// A nil *Monitor records nothing.
type Monitor struct {
	turns          *prometheus.CounterVec
	intentFailures prometheus.Counter
	provisionTimer *prometheus.HistogramVec
}

func NewMonitor() *Monitor {
	return &Monitor{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operator_turns_total",
			Help: "Chat turns handled, by action and outcome",
		}, []string{"action", "outcome"}),
		intentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "operator_intent_failures_total",
			Help: "Messages the intent compiler could not turn into an intent",
		}),
		provisionTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operator_provisioning_duration_seconds",
			Help:    "Duration of provisioning calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 14), // 0.5s to ~68min
		}, []string{"resource", "error"}),
	}
}

func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {
	m.turns.Describe(ch)
	m.intentFailures.Describe(ch)
	m.provisionTimer.Describe(ch)
}

func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	m.turns.Collect(ch)
	m.intentFailures.Collect(ch)
	m.provisionTimer.Collect(ch)
}

func (m *Monitor) ObserveTurn(action, outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(action, outcome).Inc()
}

func (m *Monitor) ObserveIntentFailure() {
	if m == nil {
		return
	}
	m.intentFailures.Inc()
}

// ObserveProvisioning records how long a provisioning call took.
func (m *Monitor) ObserveProvisioning(resource string, took time.Duration, err error) {
	if m == nil {
		return
	}
	failed := "false"
	if err != nil {
		failed = "true"
	}
	m.provisionTimer.WithLabelValues(resource, failed).Observe(took.Seconds())
}
