package metrics

import (
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*PrometheusRecorder, error) {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return NewPrometheusRecorder(registry), nil
	})
	do.Provide(injector, func(i do.Injector) (metrics.Recorder, error) {
		return do.MustInvoke[*PrometheusRecorder](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		c := do.MustInvoke[*config.Config](i)
		rec := do.MustInvoke[*PrometheusRecorder](i)
		return NewServer(c.MetricsAddr, rec.Handler()), nil
	})
}
