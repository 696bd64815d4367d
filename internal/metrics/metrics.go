package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Routed       *prometheus.CounterVec
	Refined      prometheus.Counter
	HandlerFail  prometheus.Counter
	RouteLatency prometheus.Histogram
	Confidence   prometheus.Histogram
	Duplicates   prometheus.Counter
	Inflight     prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	routed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_messages_routed_total",
		Help: "Messages routed, by intent and whether the handler failed.",
	}, []string{"intent", "failed"})
	refined := prometheus.NewCounter(prometheus.CounterOpts{Name: "desk_refinements_total"})
	handlerFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "desk_handler_failures_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "desk_route_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	confidence := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "desk_classifier_confidence",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})
	dups := prometheus.NewCounter(prometheus.CounterOpts{Name: "desk_duplicate_messages_total"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{Name: "desk_active_users"})

	r.MustRegister(routed, refined, handlerFail, latency, confidence, dups, inflight,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{
		reg:          r,
		Routed:       routed,
		Refined:      refined,
		HandlerFail:  handlerFail,
		RouteLatency: latency,
		Confidence:   confidence,
		Duplicates:   dups,
		Inflight:     inflight,
	}
}

// ObserveRoute records one routed message.
func (r *Registry) ObserveRoute(label string, confidence float64, refined, failed bool, took time.Duration) {
	r.Routed.WithLabelValues(label, strconv.FormatBool(failed)).Inc()
	if refined {
		r.Refined.Inc()
	}
	if failed {
		r.HandlerFail.Inc()
	}
	r.RouteLatency.Observe(took.Seconds())
	r.Confidence.Observe(confidence)
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
