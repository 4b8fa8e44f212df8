package agg

import (
	"sort"

	"github.com/montanaflynn/stats"

	"truck-simulator/internal/geo"
	"truck-simulator/internal/route"
)

// UnknownState buckets minutes whose state attribution failed. They are
// reported as a data-quality count, never silently dropped.
const UnknownState = "UNKNOWN"

// DefaultRollingWindow is the smoothing window applied to each truck's
// per-minute speed series in the report.
const DefaultRollingWindow = 5

// TripSummary is one output row per truck.
type TripSummary struct {
	TruckID     string
	Origin      string
	Dest        string
	DistanceKm  float64
	DurationMin float64
	AvgSpeedKmh float64
	RouteSource string
}

// SpeedSample is the instantaneous speed over one minute transition. The
// first minute of a trip has no sample.
type SpeedSample struct {
	TruckID  string
	Minute   int
	SpeedKmh float64
}

// MinuteRecord is one attributed per-minute sample as fed to the accumulator.
type MinuteRecord struct {
	Minute     int
	ElapsedMin float64
	Lat        float64
	Lon        float64
	CumKm      float64
	State      string
	Known      bool
}

// Point returns the sample position as a geo point.
func (m MinuteRecord) Point() geo.Point {
	return geo.Point{Lat: m.Lat, Lon: m.Lon}
}

// StateKey identifies a (state, truck) minute counter.
type StateKey struct {
	State   string
	TruckID string
}

// StateMinutesRow is one output row of the per-state table.
type StateMinutesRow struct {
	State   string
	TruckID string
	Minutes int
}

// Accumulator folds trips into the three output tables. It is not safe for
// concurrent use; run one per worker and Merge them afterwards.
type Accumulator struct {
	summaries    []TripSummary
	speeds       []SpeedSample
	stateMinutes map[StateKey]int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{stateMinutes: make(map[StateKey]int)}
}

// AddTrip folds one trip's summary and attributed minutes.
func (a *Accumulator) AddTrip(s TripSummary, minutes []MinuteRecord) {
	a.summaries = append(a.summaries, s)

	for i, m := range minutes {
		state := m.State
		if !m.Known {
			state = UnknownState
		}
		a.stateMinutes[StateKey{State: state, TruckID: s.TruckID}]++

		if i == 0 {
			continue
		}
		prev := minutes[i-1]
		dtMin := m.ElapsedMin - prev.ElapsedMin
		if dtMin <= 0 {
			continue
		}
		// Instantaneous speed over the minute transition, from the
		// great-circle distance between the two sampled positions.
		a.speeds = append(a.speeds, SpeedSample{
			TruckID:  s.TruckID,
			Minute:   m.Minute,
			SpeedKmh: geo.Haversine(prev.Point(), m.Point()) / (dtMin / 60),
		})
	}
}

// Merge folds another accumulator into this one. Merging is commutative up to
// row order, so parallel per-trip accumulators reduce deterministically.
func (a *Accumulator) Merge(b *Accumulator) {
	a.summaries = append(a.summaries, b.summaries...)
	a.speeds = append(a.speeds, b.speeds...)
	for k, v := range b.stateMinutes {
		a.stateMinutes[k] += v
	}
}

// Report is the batch output consumed by export and plotting.
type Report struct {
	Summaries    []TripSummary
	Speeds       []SpeedSample
	StateMinutes []StateMinutesRow

	// SmoothedSpeeds holds each truck's speed series after rolling-mean
	// smoothing, in minute order.
	SmoothedSpeeds map[string][]float64

	StateTotals    map[string]int
	UnknownMinutes int
	FallbackTrips  int

	// DistanceDurationCorrelation is a pipeline sanity check: distance and
	// duration should correlate strongly across trips. A low or negative
	// value signals a defect upstream, not truck behavior.
	DistanceDurationCorrelation float64
	MeanSpeedKmh                float64
}

// Report materializes the output tables. Rows are sorted for reproducible
// output regardless of trip processing order.
func (a *Accumulator) Report() *Report {
	r := &Report{
		Summaries:   append([]TripSummary(nil), a.summaries...),
		Speeds:      append([]SpeedSample(nil), a.speeds...),
		StateTotals: make(map[string]int),
	}
	sort.Slice(r.Summaries, func(i, j int) bool { return r.Summaries[i].TruckID < r.Summaries[j].TruckID })
	sort.Slice(r.Speeds, func(i, j int) bool {
		if r.Speeds[i].TruckID != r.Speeds[j].TruckID {
			return r.Speeds[i].TruckID < r.Speeds[j].TruckID
		}
		return r.Speeds[i].Minute < r.Speeds[j].Minute
	})

	for k, v := range a.stateMinutes {
		r.StateMinutes = append(r.StateMinutes, StateMinutesRow{State: k.State, TruckID: k.TruckID, Minutes: v})
		r.StateTotals[k.State] += v
		if k.State == UnknownState {
			r.UnknownMinutes += v
		}
	}
	sort.Slice(r.StateMinutes, func(i, j int) bool {
		if r.StateMinutes[i].State != r.StateMinutes[j].State {
			return r.StateMinutes[i].State < r.StateMinutes[j].State
		}
		return r.StateMinutes[i].TruckID < r.StateMinutes[j].TruckID
	})

	for _, s := range r.Summaries {
		if s.RouteSource == route.SourceFallback {
			r.FallbackTrips++
		}
	}

	if len(r.Summaries) >= 2 {
		dists := make([]float64, len(r.Summaries))
		durs := make([]float64, len(r.Summaries))
		for i, s := range r.Summaries {
			dists[i] = s.DistanceKm
			durs[i] = s.DurationMin
		}
		if corr, err := stats.Correlation(dists, durs); err == nil {
			r.DistanceDurationCorrelation = corr
		}
	}
	if len(r.Speeds) > 0 {
		vals := make([]float64, len(r.Speeds))
		for i, s := range r.Speeds {
			vals[i] = s.SpeedKmh
		}
		if mean, err := stats.Mean(vals); err == nil {
			r.MeanSpeedKmh = mean
		}

		// Speeds are sorted by truck then minute, so each truck's series is
		// a contiguous run.
		r.SmoothedSpeeds = make(map[string][]float64)
		for _, s := range r.Speeds {
			r.SmoothedSpeeds[s.TruckID] = append(r.SmoothedSpeeds[s.TruckID], s.SpeedKmh)
		}
		for truck, series := range r.SmoothedSpeeds {
			r.SmoothedSpeeds[truck] = RollingMeanSpeeds(series, DefaultRollingWindow)
		}
	}
	return r
}

// RollingMeanSpeeds smooths per-minute speeds with a centered window.
func RollingMeanSpeeds(speeds []float64, window int) []float64 {
	if window <= 1 || len(speeds) < window {
		return append([]float64(nil), speeds...)
	}
	out := make([]float64, len(speeds))
	for i := range speeds {
		lo := i - window/2
		if lo < 0 {
			lo = 0
		}
		hi := i + window/2 + 1
		if hi > len(speeds) {
			hi = len(speeds)
		}
		sum := 0.0
		for _, v := range speeds[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
