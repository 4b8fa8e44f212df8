package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Collector struct {
	reg *prometheus.Registry

	TripsPlanned prometheus.Gauge
	Workers      prometheus.Gauge

	TripsSimulated prometheus.Counter
	TripsSkipped   prometheus.Counter

	ProviderRoutes prometheus.Counter
	FallbackRoutes prometheus.Counter

	UnknownStateMinutes prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TripDuration prometheus.Histogram
	PlanDuration prometheus.Histogram

	PublishDuration prometheus.Histogram
}

func NewCollector(workers int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsPlanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_trips_planned",
			Help: "Number of trips in the current batch.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_workers",
			Help: "Configured worker pool size.",
		}),
		TripsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_trips_simulated_total",
			Help: "Total trips simulated successfully.",
		}),
		TripsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_trips_skipped_total",
			Help: "Total trips skipped due to route invariant violations.",
		}),
		ProviderRoutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_provider_routes_total",
			Help: "Total routes obtained from the routing provider.",
		}),
		FallbackRoutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_fallback_routes_total",
			Help: "Total straight-line fallback routes used.",
		}),
		UnknownStateMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_unknown_state_minutes_total",
			Help: "Total per-minute samples with no attributable US state.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TripDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_trip_duration_seconds",
			Help:    "Wall time to route, resample, and attribute one trip.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_plan_duration_seconds",
			Help:    "Duration of route planning calls including fallback.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.TripsPlanned, c.Workers,
		c.TripsSimulated, c.TripsSkipped,
		c.ProviderRoutes, c.FallbackRoutes,
		c.UnknownStateMinutes,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TripDuration, c.PlanDuration, c.PublishDuration,
	)

	c.Workers.Set(float64(workers))

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()
	log.Infof("metrics listening on %s", addr)
	return srv
}
