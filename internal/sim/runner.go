package sim

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"truck-simulator/internal/agg"
	"truck-simulator/internal/geo"
	"truck-simulator/internal/metrics"
	"truck-simulator/internal/metros"
	"truck-simulator/internal/publisher"
	"truck-simulator/internal/route"
)

// Trip is one origin/destination assignment for a truck.
type Trip struct {
	TruckID string
	Origin  metros.Metro
	Dest    metros.Metro
}

// StateLocator resolves a coordinate to a US state name. The second return is
// false when no state can be attributed.
type StateLocator interface {
	Locate(p geo.Point) (string, bool)
}

// Runner simulates a batch of trips: route, resample, attribute, aggregate.
// Trips run concurrently on isolated accumulators that are merged once all
// workers finish, so aggregation is order-independent.
type Runner struct {
	adapter *route.Adapter
	states  StateLocator
	pub     *publisher.NATSPublisher
	metrics *metrics.Collector
	workers int
}

// NewRunner wires a batch runner. pub and mcol may be nil; workers <= 0 means
// one worker per trip.
func NewRunner(adapter *route.Adapter, states StateLocator, pub *publisher.NATSPublisher, mcol *metrics.Collector, workers int) *Runner {
	return &Runner{adapter: adapter, states: states, pub: pub, metrics: mcol, workers: workers}
}

// Run processes all trips and returns the merged report. Individual trips that
// violate route invariants are skipped and logged; the batch always completes.
func (r *Runner) Run(ctx context.Context, trips []Trip) (*agg.Report, error) {
	if r.metrics != nil {
		r.metrics.TripsPlanned.Set(float64(len(trips)))
	}

	accs := make([]*agg.Accumulator, len(trips))
	g, ctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for i, t := range trips {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			acc, err := r.runTrip(ctx, t)
			if err != nil {
				log.WithFields(log.Fields{
					"truck": t.TruckID,
					"origin": t.Origin.Name,
					"dest": t.Dest.Name,
				}).WithError(err).Error("skipping trip")
				if r.metrics != nil {
					r.metrics.TripsSkipped.Inc()
				}
				return nil
			}
			accs[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := agg.NewAccumulator()
	for _, acc := range accs {
		if acc != nil {
			merged.Merge(acc)
		}
	}
	return merged.Report(), nil
}

func (r *Runner) runTrip(ctx context.Context, t Trip) (*agg.Accumulator, error) {
	start := time.Now()

	planStart := time.Now()
	rt := r.adapter.Plan(ctx, t.Origin.Location(), t.Dest.Location())
	if r.metrics != nil {
		r.metrics.PlanDuration.Observe(time.Since(planStart).Seconds())
		if rt.Source == route.SourceFallback {
			r.metrics.FallbackRoutes.Inc()
		} else {
			r.metrics.ProviderRoutes.Inc()
		}
	}

	pts, err := Resample(rt)
	if err != nil {
		return nil, err
	}

	minutes := make([]agg.MinuteRecord, len(pts))
	unknown := 0
	for i, p := range pts {
		state, ok := r.states.Locate(p.Point())
		if !ok {
			unknown++
		}
		minutes[i] = agg.MinuteRecord{
			Minute:     p.Minute,
			ElapsedMin: p.ElapsedMin,
			Lat:        p.Lat,
			Lon:        p.Lon,
			CumKm:      p.CumKm,
			State:      state,
			Known:      ok,
		}
		r.publish(t.TruckID, pts, minutes, i)
	}
	if unknown > 0 && r.metrics != nil {
		r.metrics.UnknownStateMinutes.Add(float64(unknown))
	}

	last := pts[len(pts)-1]
	summary := agg.TripSummary{
		TruckID:     t.TruckID,
		Origin:      t.Origin.Name,
		Dest:        t.Dest.Name,
		DistanceKm:  last.CumKm,
		DurationMin: last.ElapsedMin,
		RouteSource: rt.Source,
	}
	if summary.DurationMin > 0 {
		summary.AvgSpeedKmh = summary.DistanceKm / (summary.DurationMin / 60)
	}

	acc := agg.NewAccumulator()
	acc.AddTrip(summary, minutes)

	if r.metrics != nil {
		r.metrics.TripsSimulated.Inc()
		r.metrics.TripDuration.Observe(time.Since(start).Seconds())
	}
	log.WithFields(log.Fields{
		"truck": t.TruckID,
		"origin": t.Origin.Name,
		"dest": t.Dest.Name,
		"source": rt.Source,
		"km": summary.DistanceKm,
		"minutes": summary.DurationMin,
		"unknown": unknown,
		"samples": len(pts),
	}).Info("trip simulated")
	return acc, nil
}

func (r *Runner) publish(truckID string, pts []TrajectoryPoint, minutes []agg.MinuteRecord, i int) {
	if r.pub == nil {
		return
	}
	p := pts[i]
	msg := publisher.StatedPointMessage{
		TruckID: truckID,
		Minute:  p.Minute,
		Lat:     p.Lat,
		Lon:     p.Lon,
		State:   minutes[i].State,
	}
	if i > 0 {
		prev := pts[i-1]
		msg.Bearing = geo.Bearing(prev.Point(), p.Point())
		if dt := p.ElapsedMin - prev.ElapsedMin; dt > 0 {
			msg.SpeedKmh = geo.Haversine(prev.Point(), p.Point()) / (dt / 60)
		}
	}
	if err := r.pub.PublishStatedPoint(truckID, msg); err != nil {
		log.WithField("truck", truckID).WithError(err).Warn("publish error")
	}
}
