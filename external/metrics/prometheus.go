package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ongaku"

type PrometheusRecorder struct {
	registry       *prometheus.Registry
	resolutions    *prometheus.CounterVec
	tracksStarted  *prometheus.CounterVec
	trackFailures  *prometheus.CounterVec
	queueTeardowns *prometheus.CounterVec
	activeQueues   prometheus.Gauge
}

func NewPrometheusRecorder(registry *prometheus.Registry) *PrometheusRecorder {
	factory := promauto.With(registry)
	return &PrometheusRecorder{
		registry: registry,
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Query resolutions by result.",
		}, []string{"result"}),
		tracksStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_started_total",
			Help:      "Tracks that started playing, by stream opening strategy.",
		}, []string{"strategy"}),
		trackFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_failures_total",
			Help:      "Tracks skipped after an error, by reason.",
		}, []string{"reason"}),
		queueTeardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_teardowns_total",
			Help:      "Guild queues destroyed, by reason.",
		}, []string{"reason"}),
		activeQueues: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_queues",
			Help:      "Guild queues currently alive.",
		}),
	}
}

func (r *PrometheusRecorder) ResolveFinished(result string) {
	r.resolutions.WithLabelValues(result).Inc()
}

func (r *PrometheusRecorder) TrackStarted(strategy string) {
	r.tracksStarted.WithLabelValues(strategy).Inc()
}

func (r *PrometheusRecorder) TrackFailed(reason string) {
	r.trackFailures.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) QueueCreated() {
	r.activeQueues.Inc()
}

func (r *PrometheusRecorder) QueueDestroyed(reason string) {
	r.queueTeardowns.WithLabelValues(reason).Inc()
	r.activeQueues.Dec()
}

func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics on addr until Shutdown is called.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
