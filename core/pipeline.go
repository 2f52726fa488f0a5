package core

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/panics"

	"github.com/huangsam/injuryscope/core/dates"
	"github.com/huangsam/injuryscope/core/fixture"
	"github.com/huangsam/injuryscope/core/venue"
	"github.com/huangsam/injuryscope/core/window"
	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/internal/tabular"
	"github.com/huangsam/injuryscope/schema"
)

// Progress store namespaces.
const (
	enrichNamespace  = "enrich"
	collectNamespace = "collect"
)

// Notes attached to enriched records.
const (
	NoteInvalidRecord           = "invalid_record"
	NoteInvalidDate             = "invalid_injury_date"
	NoteTeamUnknown             = "team_id_unknown"
	NoteFixturesUnavailable     = "fixtures_unavailable"
	NoteFixtureNotFound         = "fixture_not_found"
	NoteVenueNotFound           = "venue_not_found"
	NoteNoPlayerURL             = "no_player_url"
	NoteMatchLogUnavailable     = "match_log_unavailable"
	NoteSeasonFallback          = "season_fallback"
	NoteSeasonTotalsUnavailable = "season_totals_unavailable"
	NoteNoPerformance           = "no_performance_data"
	NotePanic                   = "panic"
)

// PipelineDeps are the collaborators of a Pipeline. Progress, Runs, Logger
// and Recorder may be nil.
type PipelineDeps struct {
	Fetcher  contract.PageFetcher
	Progress contract.ProgressStore
	Runs     contract.RunStore
	Venues   *venue.Table
	Teams    contract.TeamLookup
	Logger   *logging.Logger
	Recorder *metrics.Recorder
}

// PipelineOptions are the policy knobs of a Pipeline.
type PipelineOptions struct {
	WindowDays      int
	SeasonFallback  bool
	Policy          fixture.Policy // zero value only matches same-day fixtures
	CheckpointEvery int
	CheckpointFile  string
	ConfigParams    map[string]any // stored with the run
}

// Pipeline enriches injury events one at a time. It holds no state between
// units except the set of keys already processed.
type Pipeline struct {
	fetcher  contract.PageFetcher
	progress contract.ProgressStore
	runs     contract.RunStore
	venues   *venue.Table
	resolver *fixture.Resolver
	opts     PipelineOptions
	logger   *logging.Logger
	recorder *metrics.Recorder
	now      func() time.Time

	resume map[string]struct{}
}

// NewPipeline creates a Pipeline. An invalid policy is FatalConfig.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) (*Pipeline, error) {
	if deps.Fetcher == nil {
		return nil, contract.FatalConfigf("pipeline needs a page fetcher")
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = contract.DefaultWindowDays
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = contract.DefaultCheckpointEvery
	}
	resolver, err := fixture.NewResolver(opts.Policy, deps.Teams)
	if err != nil {
		return nil, err
	}
	progress := deps.Progress
	if progress == nil {
		progress = iocache.NewMemoryProgressStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		fetcher:  deps.Fetcher,
		progress: progress,
		runs:     deps.Runs,
		venues:   deps.Venues,
		resolver: resolver,
		opts:     opts,
		logger:   logger.With("component", "pipeline"),
		recorder: deps.Recorder,
		now:      time.Now,
		resume:   map[string]struct{}{},
	}, nil
}

// Enrich processes one event. It never returns an error: every field-level
// failure is recorded as a note and the status says how far it got.
func (p *Pipeline) Enrich(ctx context.Context, event schema.InjuryEvent) schema.EnrichedInjuryRecord {
	rec := schema.EnrichedInjuryRecord{InjuryEvent: event}

	if err := tabular.ValidateInjury(event); err != nil {
		rec.AddNote(NoteInvalidRecord)
		rec.Status = schema.StatusSkipped
		return rec
	}
	injuryDate, ok := dates.Normalize(event.InjuryDate)
	if !ok {
		rec.AddNote(NoteInvalidDate)
		rec.Status = schema.StatusSkipped
		return rec
	}

	p.resolveFixture(ctx, &rec, injuryDate)
	if rec.Fixture != nil {
		p.joinVenue(&rec, injuryDate)
	}
	p.aggregatePerformance(ctx, &rec, injuryDate)

	if rec.Fixture != nil && rec.Venue != nil && rec.HasPerformance() {
		rec.Status = schema.StatusEnriched
	} else {
		rec.Status = schema.StatusPartial
	}
	return rec
}

// resolveFixture resolves over the fixture lists of every season candidate
// of injuryDate, so a November injury also sees the fixtures of its own
// calendar year.
func (p *Pipeline) resolveFixture(ctx context.Context, rec *schema.EnrichedInjuryRecord, injuryDate time.Time) {
	var lists [][]schema.Fixture
	for _, season := range fixture.SeasonCandidates(injuryDate) {
		fixtures, err := p.fetcher.FetchFixtures(ctx, rec.Team, season)
		if err != nil {
			if errors.Is(err, contract.ErrLookupMiss) {
				rec.AddNote(NoteTeamUnknown)
			} else {
				rec.AddNote(NoteFixturesUnavailable)
			}
			p.logger.Debug("fixtures unavailable", "team", rec.Team, "season", season, "kind", contract.KindOf(err), "error", err)
			continue
		}
		lists = append(lists, fixtures)
	}

	resolved, ok := p.resolver.Resolve(rec.Team, injuryDate, fixture.Merge(lists...))
	if !ok {
		rec.AddNote(NoteFixtureNotFound)
		return
	}
	rec.Fixture = &resolved
	p.recorder.FixtureMatch()
}

// joinVenue looks the venue up by the fixture's home team so that away
// injuries resolve to the opponent's stadium.
func (p *Pipeline) joinVenue(rec *schema.EnrichedInjuryRecord, injuryDate time.Time) {
	v, ok := p.venues.Lookup(rec.Fixture.HomeTeam, injuryDate.Year())
	if !ok {
		rec.AddNote(NoteVenueNotFound)
		return
	}
	rec.Venue = &v
	p.recorder.VenueMatch()
}

func (p *Pipeline) aggregatePerformance(ctx context.Context, rec *schema.EnrichedInjuryRecord, injuryDate time.Time) {
	if strings.TrimSpace(rec.PlayerURL) == "" {
		rec.AddNote(NoteNoPlayerURL)
		rec.AddNote(NoteNoPerformance)
		return
	}

	obs, fetched := p.matchLog(ctx, rec, injuryDate)
	if len(obs) > 0 {
		before, after := window.Aggregate(obs, injuryDate, p.opts.WindowDays)
		rec.Before, rec.After = &before, &after
		rec.PerformanceSource = schema.SourceMatch
		return
	}

	if p.opts.SeasonFallback {
		season := window.FallbackSeason(injuryDate)
		totals, err := p.fetcher.FetchSeasonTotals(ctx, rec.PlayerURL, strconv.Itoa(season))
		if err == nil {
			before, after := window.SeasonFallback(totals)
			rec.Before, rec.After = &before, &after
			rec.PerformanceSource = schema.SourceSeason
			rec.AddNote(NoteSeasonFallback)
			p.recorder.SeasonFallback()
			return
		}
		rec.AddNote(NoteSeasonTotalsUnavailable)
		p.logger.Debug("season totals unavailable", "player", rec.PlayerName, "season", season, "kind", contract.KindOf(err), "error", err)
	}

	if !fetched {
		rec.AddNote(NoteNoPerformance)
		return
	}
	// The match log was reachable but empty: zero-valued windows, not missing ones.
	before, after := window.Aggregate(nil, injuryDate, p.opts.WindowDays)
	rec.Before, rec.After = &before, &after
	rec.PerformanceSource = schema.SourceMatch
}

// matchLog gathers observations across the season candidates of injuryDate.
// A match listed in two seasons is kept once. fetched reports whether any
// season answered.
func (p *Pipeline) matchLog(ctx context.Context, rec *schema.EnrichedInjuryRecord, injuryDate time.Time) (obs []schema.MatchObservation, fetched bool) {
	seen := make(map[string]struct{})
	for _, season := range fixture.SeasonCandidates(injuryDate) {
		matches, err := p.fetcher.FetchMatchLog(ctx, rec.PlayerURL, season)
		if err != nil {
			rec.AddNote(NoteMatchLogUnavailable)
			p.logger.Debug("match log unavailable", "player", rec.PlayerName, "season", season, "kind", contract.KindOf(err), "error", err)
			continue
		}
		fetched = true
		for _, m := range matches {
			day := dates.Format(m.Date)
			if _, dup := seen[day]; dup {
				continue
			}
			seen[day] = struct{}{}
			obs = append(obs, m)
		}
	}
	return obs, fetched
}

// Reset clears the enrichment namespace of the progress store for a fresh
// run.
func (p *Pipeline) Reset(ctx context.Context) error {
	p.resume = map[string]struct{}{}
	return p.progress.Clear(ctx, enrichNamespace)
}

// Resume reconciles the progress store with the keys found in the partial
// output on disk. The output wins: store keys missing on disk are
// reprocessed and disk keys missing from the store are marked again.
func (p *Pipeline) Resume(ctx context.Context, onDisk map[string]struct{}) error {
	stored, err := p.progress.Keys(ctx, enrichNamespace)
	if err != nil {
		return errors.Wrap(err, "failed to read progress markers")
	}

	storedSet := make(map[string]struct{}, len(stored))
	diverged := 0
	for _, key := range stored {
		storedSet[key] = struct{}{}
		if _, ok := onDisk[key]; !ok {
			diverged++
		}
	}
	if diverged > 0 {
		p.logger.Warn("progress markers ahead of output, reprocessing", "units", diverged)
	}

	remarked := 0
	for key := range onDisk {
		if _, ok := storedSet[key]; ok {
			continue
		}
		if err := p.progress.Mark(ctx, enrichNamespace, key); err != nil {
			return errors.Wrap(err, "failed to restore progress marker")
		}
		remarked++
	}
	if remarked > 0 {
		p.logger.Info("restored progress markers from output", "units", remarked)
	}

	p.resume = make(map[string]struct{}, len(onDisk))
	for key := range onDisk {
		p.resume[key] = struct{}{}
	}
	return nil
}

// Run enriches events in input order and appends one record per event to
// sink. Units already in the resume set are skipped. A key repeated within
// events is enriched again and counted as a duplicate. Only context
// cancellation or a sink error stops the batch.
func (p *Pipeline) Run(ctx context.Context, events []schema.InjuryEvent, sink contract.EnrichedSink) (schema.EnrichmentSummary, error) {
	start := p.now()
	summary := schema.EnrichmentSummary{Total: len(events)}

	if p.runs != nil {
		runID, err := p.runs.BeginRun(schema.EnrichRun, start, p.opts.ConfigParams)
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else {
			summary.RunID = runID
		}
	}

	done := make(map[string]struct{}, len(p.resume)+len(events))
	for key := range p.resume {
		done[key] = struct{}{}
	}
	seen := make(map[string]struct{}, len(events))
	sinceCheckpoint := 0

	var runErr error
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		key := event.Key()
		if _, ok := p.resume[key]; ok {
			summary.Resumed++
			continue
		}
		if _, ok := seen[key]; ok {
			summary.Duplicates++
		}
		seen[key] = struct{}{}

		rec := p.enrichSafely(ctx, event)
		if err := ctx.Err(); err != nil {
			// Fetches were cut short; the unit is retried on resume.
			runErr = err
			break
		}
		if err := sink.Append(rec); err != nil {
			runErr = errors.Wrapf(err, "failed to write record %s", key)
			break
		}
		if err := p.progress.Mark(ctx, enrichNamespace, key); err != nil {
			p.logger.Warn("failed to mark progress", "key", key, "error", err)
		}
		done[key] = struct{}{}

		p.tally(&summary, rec)
		p.recordOutcome(summary.RunID, key, rec)

		sinceCheckpoint++
		if sinceCheckpoint >= p.opts.CheckpointEvery {
			p.checkpoint(done)
			sinceCheckpoint = 0
		}
	}
	p.checkpoint(done)

	summary.Duration = p.now().Sub(start)
	if p.runs != nil && summary.RunID != "" {
		if err := p.runs.EndRun(summary.RunID, p.now(), summary.Counts()); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}
	p.logger.Info("enrichment finished",
		"processed", summary.Processed, "resumed", summary.Resumed,
		"enriched", summary.Enriched, "partial", summary.Partial,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, runErr
}

// enrichSafely runs Enrich and turns a panic into a failed record.
func (p *Pipeline) enrichSafely(ctx context.Context, event schema.InjuryEvent) schema.EnrichedInjuryRecord {
	var rec schema.EnrichedInjuryRecord
	if recovered := panics.Try(func() { rec = p.Enrich(ctx, event) }); recovered != nil {
		p.logger.Error("enrichment panicked", "key", event.Key(), "error", recovered.AsError())
		rec = schema.EnrichedInjuryRecord{InjuryEvent: event, Status: schema.StatusFailed}
		rec.AddNote(NotePanic)
	}
	return rec
}

func (p *Pipeline) tally(summary *schema.EnrichmentSummary, rec schema.EnrichedInjuryRecord) {
	summary.Processed++
	switch rec.Status {
	case schema.StatusEnriched:
		summary.Enriched++
	case schema.StatusPartial:
		summary.Partial++
	case schema.StatusSkipped:
		summary.Skipped++
	case schema.StatusFailed:
		summary.Failed++
	}
	if rec.Fixture != nil {
		summary.FixtureMatches++
		if rec.Fixture.IsHomeForSubjectTeam {
			summary.HomeGames++
		} else {
			summary.AwayGames++
		}
	}
	if rec.Venue != nil {
		summary.VenueMatches++
	}
	if rec.PerformanceSource == schema.SourceSeason {
		summary.SeasonFallbacks++
	}
	p.recorder.Unit(rec.Status)
}

func (p *Pipeline) recordOutcome(runID, key string, rec schema.EnrichedInjuryRecord) {
	if p.runs == nil || runID == "" {
		return
	}
	if err := p.runs.RecordOutcome(runID, key, rec.Status, strings.Join(rec.Notes, ";")); err != nil {
		contract.LogWarn("Run tracking failed for "+key, err)
	}
}

func (p *Pipeline) checkpoint(done map[string]struct{}) {
	if p.opts.CheckpointFile == "" {
		return
	}
	keys := make([]string, 0, len(done))
	for key := range done {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	if err := iocache.SaveCheckpoint(p.opts.CheckpointFile, keys, p.now()); err != nil {
		p.logger.Warn("failed to save checkpoint", "path", p.opts.CheckpointFile, "error", err)
	}
}
