package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"truck-simulator/internal/config"
	"truck-simulator/internal/db"
	"truck-simulator/internal/geo"
	"truck-simulator/internal/metrics"
	"truck-simulator/internal/metros"
	"truck-simulator/internal/publisher"
	"truck-simulator/internal/route"
	"truck-simulator/internal/sim"
	"truck-simulator/internal/states"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Reference data
	metroSet := metros.Default()
	if cfg.MetrosFile != "" {
		metroSet, err = metros.Load(cfg.MetrosFile)
		if err != nil {
			log.Fatalf("load metros: %v", err)
		}
	}
	log.Infof("loaded %d metros", len(metroSet))

	var locator sim.StateLocator = unknownLocator{}
	if cfg.StatesGeoJSON != "" {
		idx, err := states.Load(cfg.StatesGeoJSON, cfg.MaxSnapKm)
		if err != nil {
			log.Fatalf("load states: %v", err)
		}
		log.Infof("loaded %d state polygons", idx.Count())
		locator = idx
	} else {
		log.Warn("STATES_GEOJSON not set, all minutes will be attributed as unknown")
	}

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.Workers)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Optional NATS publisher
	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	// Optional persistence
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			log.Fatalf("db schema error: %v", err)
		}
	}

	planner := route.NewOSRMPlanner(cfg.OSRMURL, cfg.RouteTimeout)
	adapter := route.NewAdapter(planner, cfg.DetourFactor, cfg.FallbackSpeedKmh)
	runner := sim.NewRunner(adapter, locator, pub, mcol, cfg.Workers)

	trips := buildTrips(cfg.Trips, cfg.Seed, metroSet)
	log.Infof("simulating %d trips with %d workers", len(trips), cfg.Workers)

	report, err := runner.Run(ctx, trips)
	if err != nil {
		log.Fatalf("batch aborted: %v", err)
	}

	log.WithFields(log.Fields{
		"trips":          len(report.Summaries),
		"fallbackTrips":  report.FallbackTrips,
		"unknownMinutes": report.UnknownMinutes,
		"meanSpeedKmh":   fmt.Sprintf("%.1f", report.MeanSpeedKmh),
		"distDurCorr":    fmt.Sprintf("%.3f", report.DistanceDurationCorrelation),
	}).Info("batch complete")
	for state, minutes := range report.StateTotals {
		log.Infof("state %s: %d minutes", state, minutes)
	}
	if report.DistanceDurationCorrelation < 0.5 && len(report.Summaries) >= 2 {
		log.Warnf("distance/duration correlation %.3f is unexpectedly low, check the pipeline", report.DistanceDurationCorrelation)
	}

	if sqlDB != nil {
		runID := uuid.New().String()
		if err := db.SaveReport(ctx, sqlDB, runID, report); err != nil {
			log.Fatalf("save report: %v", err)
		}
		log.Infof("report persisted with run_id %s", runID)
	}

	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
}

// buildTrips assigns a random distinct metro pair to each truck. A non-zero
// seed makes the assignment reproducible.
func buildTrips(n int, seed int64, metroSet []metros.Metro) []sim.Trip {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	trips := make([]sim.Trip, n)
	for i := range trips {
		origin, dest := metros.RandomPair(rng, metroSet)
		trips[i] = sim.Trip{
			TruckID: fmt.Sprintf("truck-%d", i+1),
			Origin:  origin,
			Dest:    dest,
		}
	}
	return trips
}

type unknownLocator struct{}

func (unknownLocator) Locate(geo.Point) (string, bool) { return "", false }

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
