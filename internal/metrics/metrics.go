// Package metrics records batch counters in a private Prometheus registry and
// writes them to a textfile at the end of a run.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/huangsam/injuryscope/schema"
)

const namespace = "injuryscope"

// Fetch result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultCache = "cache"
)

// Fetch kinds, one per page type.
const (
	KindFixtures = "fixtures"
	KindMatchLog = "matchlog"
	KindTotals   = "totals"
	KindTeams    = "teams"
	KindSquad    = "squad"
	KindInjuries = "injuries"
)

// Recorder holds the batch metrics. A nil Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	command  string

	units           *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	fixtureMatches  prometheus.Counter
	venueMatches    prometheus.Counter
	seasonFallbacks prometheus.Counter
}

// NewRecorder creates a Recorder for one command invocation.
func NewRecorder(command string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		command:  command,
		units: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Units of work processed, by command and outcome status.",
		}, []string{"command", "status"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Page fetches, by page kind and result.",
		}, []string{"kind", "result"}),
		fetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of network page fetches.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		fixtureMatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixture_matches_total",
			Help:      "Injuries resolved to a preceding fixture.",
		}),
		venueMatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_matches_total",
			Help:      "Resolved fixtures joined to a venue.",
		}),
		seasonFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Records whose performance came from season totals.",
		}),
	}
}

// Unit counts one processed unit.
func (r *Recorder) Unit(status schema.RecordStatus) {
	if r == nil {
		return
	}
	r.units.WithLabelValues(r.command, string(status)).Inc()
}

// Fetch counts one fetch and, for network results, observes its latency.
func (r *Recorder) Fetch(kind, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(kind, result).Inc()
	if result != ResultCache {
		r.fetchLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// FixtureMatch counts a resolved fixture.
func (r *Recorder) FixtureMatch() {
	if r != nil {
		r.fixtureMatches.Inc()
	}
}

// VenueMatch counts a joined venue.
func (r *Recorder) VenueMatch() {
	if r != nil {
		r.venueMatches.Inc()
	}
}

// SeasonFallback counts a season-total fallback.
func (r *Recorder) SeasonFallback() {
	if r != nil {
		r.seasonFallbacks.Inc()
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
