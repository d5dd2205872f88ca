// Package monitoring exposes the operator's prometheus metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/Yogeshviper/azure-ai-operator/internal/conf"
)

// Registry gathers the operator's metrics. Collectors registered through it
// carry the configured labels, so a label name must not clash with one a
// collector already uses.
type Registry struct {
	reg     *prometheus.Registry
	labeled prometheus.Registerer
}

var (
	_ prometheus.Registerer = (*Registry)(nil)
	_ prometheus.Gatherer   = (*Registry)(nil)
)

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry(config conf.MonitoringConfig) *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg:     reg,
		labeled: prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), reg),
	}
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) Register(c prometheus.Collector) error {
	return r.labeled.Register(c)
}

func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.labeled.MustRegister(cs...)
}

func (r *Registry) Unregister(c prometheus.Collector) bool {
	return r.labeled.Unregister(c)
}

func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}
