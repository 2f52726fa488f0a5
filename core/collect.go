package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/panics"

	"github.com/huangsam/injuryscope/core/fixture"
	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/schema"
)

// CollectorDeps are the collaborators of a Collector. Progress, Runs, Logger
// and Recorder may be nil.
type CollectorDeps struct {
	Fetcher  contract.RosterFetcher
	Progress contract.ProgressStore
	Runs     contract.RunStore
	Logger   *logging.Logger
	Recorder *metrics.Recorder
}

// CollectOptions are the knobs of a Collector.
type CollectOptions struct {
	CheckpointEvery int
	CheckpointFile  string
	ConfigParams    map[string]any
}

// Collector walks league, squad and injury pages and emits injury events.
type Collector struct {
	fetcher  contract.RosterFetcher
	progress contract.ProgressStore
	runs     contract.RunStore
	opts     CollectOptions
	logger   *logging.Logger
	recorder *metrics.Recorder
	now      func() time.Time

	resume map[string]struct{}
}

// NewCollector creates a Collector.
func NewCollector(deps CollectorDeps, opts CollectOptions) (*Collector, error) {
	if deps.Fetcher == nil {
		return nil, contract.FatalConfigf("collector needs a roster fetcher")
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = contract.DefaultCheckpointEvery
	}
	progress := deps.Progress
	if progress == nil {
		progress = iocache.NewMemoryProgressStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Collector{
		fetcher:  deps.Fetcher,
		progress: progress,
		runs:     deps.Runs,
		opts:     opts,
		logger:   logger.With("component", "collector"),
		recorder: deps.Recorder,
		now:      time.Now,
		resume:   map[string]struct{}{},
	}, nil
}

// PlayerSeasonKey identifies one player's injury page for one season.
func PlayerSeasonKey(playerURL, season string) string {
	return playerURL + "_" + season
}

// CollectedKeys derives player-season keys from events already on disk.
// Rows without a player URL or a readable season label are ignored.
func CollectedKeys(events []schema.InjuryEvent) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, e := range events {
		if e.PlayerURL == "" {
			continue
		}
		season, ok := fixture.SeasonLabelYear(e.Season)
		if !ok {
			continue
		}
		keys[PlayerSeasonKey(e.PlayerURL, season)] = struct{}{}
	}
	return keys
}

// Reset clears the collection namespace for a fresh run.
func (c *Collector) Reset(ctx context.Context) error {
	c.resume = map[string]struct{}{}
	return c.progress.Clear(ctx, collectNamespace)
}

// Resume builds the resume set from the progress store, the keys derived
// from the output on disk and the checkpoint file.
func (c *Collector) Resume(ctx context.Context, onDisk map[string]struct{}, checkpoint []string) error {
	stored, err := c.progress.Keys(ctx, collectNamespace)
	if err != nil {
		return errors.Wrap(err, "failed to read progress markers")
	}
	c.resume = make(map[string]struct{}, len(stored)+len(onDisk)+len(checkpoint))
	for _, key := range stored {
		c.resume[key] = struct{}{}
	}
	for key := range onDisk {
		c.resume[key] = struct{}{}
	}
	for _, key := range checkpoint {
		c.resume[key] = struct{}{}
	}
	c.logger.Info("resuming collection", "store", len(stored), "disk", len(onDisk), "checkpoint", len(checkpoint))
	return nil
}

// Run collects injuries for every season. Pages that fail are counted and
// skipped; a failed player is not marked and is retried on resume. Only
// context cancellation or a sink error stops the batch.
func (c *Collector) Run(ctx context.Context, seasons []string, sink contract.InjurySink) (schema.CollectSummary, error) {
	start := c.now()
	summary := schema.CollectSummary{Seasons: seasons}

	if c.runs != nil {
		runID, err := c.runs.BeginRun(schema.CollectRun, start, c.opts.ConfigParams)
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else {
			summary.RunID = runID
		}
	}

	done := make(map[string]struct{}, len(c.resume))
	for key := range c.resume {
		done[key] = struct{}{}
	}
	sinceCheckpoint := 0

	runErr := func() error {
		for _, season := range seasons {
			teams, err := c.fetcher.FetchTeams(ctx, season)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				summary.FetchFailures++
				c.logger.Warn("league page unavailable", "season", season, "error", err)
				continue
			}
			summary.Teams += len(teams)
			c.logger.Info("collecting season", "season", season, "teams", len(teams))

			for _, team := range teams {
				players, err := c.fetcher.FetchSquad(ctx, team, season)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					summary.FetchFailures++
					c.logger.Warn("squad page unavailable", "team", team.Name, "season", season, "error", err)
					continue
				}

				for _, player := range players {
					key := PlayerSeasonKey(player.URL, season)
					if _, ok := done[key]; ok {
						summary.PlayersResumed++
						continue
					}

					events, status, err := c.collectPlayer(ctx, player, team.Name, season)
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					summary.Players++
					c.recorder.Unit(status)

					if status != schema.StatusCollected {
						summary.PlayerFailures++
						if status == schema.StatusFetchFailed {
							summary.FetchFailures++
						}
						c.recordOutcome(summary.RunID, key, status, errString(err))
						continue
					}

					for _, e := range events {
						if err := sink.Append(e); err != nil {
							return errors.Wrapf(err, "failed to write injury of %s", player.Name)
						}
					}
					summary.Injuries += len(events)
					if err := c.progress.Mark(ctx, collectNamespace, key); err != nil {
						c.logger.Warn("failed to mark progress", "key", key, "error", err)
					}
					done[key] = struct{}{}
					c.recordOutcome(summary.RunID, key, status, fmt.Sprintf("%d injuries", len(events)))

					sinceCheckpoint++
					if sinceCheckpoint >= c.opts.CheckpointEvery {
						c.checkpoint(done)
						sinceCheckpoint = 0
					}
				}
			}
		}
		return nil
	}()
	c.checkpoint(done)

	summary.Duration = c.now().Sub(start)
	if c.runs != nil && summary.RunID != "" {
		if err := c.runs.EndRun(summary.RunID, c.now(), summary.Counts()); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}
	c.logger.Info("collection finished",
		"players", summary.Players, "resumed", summary.PlayersResumed,
		"injuries", summary.Injuries, "fetch_failures", summary.FetchFailures)
	return summary, runErr
}

// collectPlayer fetches one injury page and keeps the rows of season. A
// panic while parsing becomes a failed unit.
func (c *Collector) collectPlayer(ctx context.Context, player schema.PlayerRef, team, season string) ([]schema.InjuryEvent, schema.RecordStatus, error) {
	var (
		events []schema.InjuryEvent
		err    error
	)
	recovered := panics.Try(func() {
		var all []schema.InjuryEvent
		all, err = c.fetcher.FetchInjuries(ctx, player, team)
		for _, e := range all {
			if fixture.MatchesSeason(e.Season, season) {
				events = append(events, e)
			}
		}
	})
	if recovered != nil {
		c.logger.Error("collection panicked", "player", player.Name, "error", recovered.AsError())
		return nil, schema.StatusFailed, recovered.AsError()
	}
	if err != nil {
		c.logger.Warn("injury page unavailable", "player", player.Name, "kind", contract.KindOf(err), "error", err)
		return nil, schema.StatusFetchFailed, err
	}
	c.logger.Debug("collected player", "player", player.Name, "season", season, "injuries", len(events))
	return events, schema.StatusCollected, nil
}

func (c *Collector) recordOutcome(runID, key string, status schema.RecordStatus, notes string) {
	if c.runs == nil || runID == "" {
		return
	}
	if err := c.runs.RecordOutcome(runID, key, status, notes); err != nil {
		contract.LogWarn("Run tracking failed for "+key, err)
	}
}

func (c *Collector) checkpoint(done map[string]struct{}) {
	if c.opts.CheckpointFile == "" {
		return
	}
	keys := make([]string, 0, len(done))
	for key := range done {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	if err := iocache.SaveCheckpoint(c.opts.CheckpointFile, keys, c.now()); err != nil {
		c.logger.Warn("failed to save checkpoint", "path", c.opts.CheckpointFile, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
