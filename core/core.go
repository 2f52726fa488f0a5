// Package core has the batch orchestration of injuryscope: enrichment,
// validation, collection and merge.
package core

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/core/fixture"
	"github.com/huangsam/injuryscope/core/quality"
	"github.com/huangsam/injuryscope/core/venue"
	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/internal/outwriter"
	"github.com/huangsam/injuryscope/internal/parquet"
	"github.com/huangsam/injuryscope/internal/tabular"
	"github.com/huangsam/injuryscope/internal/transfermarkt"
)

// ExecutorFunc defines the function signature for executing a batch command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// stores unpacks mgr, which may be nil.
func stores(mgr contract.StoreManager) (contract.CacheStore, contract.ProgressStore, contract.RunStore) {
	if mgr == nil {
		return nil, nil, nil
	}
	return mgr.GetCacheStore(), mgr.GetProgressStore(), mgr.GetRunStore()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// ExecuteEnrich runs the enrichment pipeline over the injuries file and
// appends to the enriched file. It is the entry point of the 'enrich'
// command.
func ExecuteEnrich(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	for _, ref := range [][2]string{
		{"injuries", cfg.InjuriesPath},
		{"venues", cfg.VenuesPath},
		{"team-ids", cfg.TeamIDsPath},
	} {
		if err := contract.RequireFile(ref[0], ref[1]); err != nil {
			return err
		}
	}

	logger := logging.Default()
	events, err := tabular.ReadInjuries(cfg.InjuriesPath)
	if err != nil {
		return err
	}
	teams, err := transfermarkt.LoadTeamTable(cfg.TeamIDsPath)
	if err != nil {
		return err
	}
	venueRows, err := tabular.ReadVenues(cfg.VenuesPath)
	if err != nil {
		return err
	}
	venues, err := venue.NewTable(venueRows, teams)
	if err != nil {
		return err
	}
	logger.Info("loaded reference data", "injuries", len(events), "venues", venues.Len(), "teams", teams.Len())

	recorder := metrics.NewRecorder("enrich")
	client := transfermarkt.NewClient(transfermarkt.Options{
		BaseURL: cfg.BaseURL,
		Delay:   cfg.FetchDelay,
		Timeout: cfg.FetchTimeout,
	}, teams, recorder, logger)
	cache, progress, runs := stores(mgr)

	pipeline, err := NewPipeline(PipelineDeps{
		Fetcher:  iocache.NewCachedFetcher(client, cache, recorder, logger),
		Progress: progress,
		Runs:     runs,
		Venues:   venues,
		Teams:    teams,
		Logger:   logger,
		Recorder: recorder,
	}, PipelineOptions{
		WindowDays:      cfg.WindowDays,
		SeasonFallback:  cfg.SeasonFallback,
		Policy:          fixture.Policy{MinGapDays: cfg.MinGapDays, MaxGapDays: cfg.MaxGapDays},
		CheckpointEvery: cfg.CheckpointEvery,
		CheckpointFile:  cfg.CheckpointFile,
		ConfigParams: map[string]any{
			"injuries":        cfg.InjuriesPath,
			"window_days":     cfg.WindowDays,
			"min_gap_days":    cfg.MinGapDays,
			"max_gap_days":    cfg.MaxGapDays,
			"season_fallback": cfg.SeasonFallback,
			"fetch_delay":     cfg.FetchDelay.String(),
			"resume":          cfg.Resume,
		},
	})
	if err != nil {
		return err
	}

	outputPath := orDefault(cfg.EnrichedPath, contract.DefaultEnrichedFile)
	if cfg.Resume {
		onDisk, err := tabular.ReadEnrichedKeys(outputPath)
		if err != nil {
			return err
		}
		if err := pipeline.Resume(ctx, onDisk); err != nil {
			return err
		}
	} else if err := pipeline.Reset(ctx); err != nil {
		return errors.Wrap(err, "failed to clear progress markers")
	}

	writer, err := tabular.OpenEnrichedWriter(outputPath, !cfg.Resume)
	if err != nil {
		return err
	}
	summary, runErr := pipeline.Run(ctx, events, writer)
	if err := writer.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			contract.LogWarn("Failed to write metrics file", err)
		}
	}
	if err := outwriter.WriteEnrichmentSummary(summary, cfg); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if cfg.ParquetFile != "" {
		records, err := tabular.ReadEnriched(outputPath)
		if err != nil {
			return err
		}
		if err := parquet.WriteEnrichedParquet(records, cfg.ParquetFile); err != nil {
			return errors.Wrap(err, "failed to export parquet")
		}
		logger.Info("exported parquet", "path", cfg.ParquetFile, "records", len(records))
	}
	return nil
}

// ExecuteValidate computes the validation report of the enriched file
// against the recovery benchmarks. It is the entry point of the 'validate'
// command.
func ExecuteValidate(_ context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	enrichedPath := orDefault(cfg.EnrichedPath, contract.DefaultEnrichedFile)
	if err := contract.RequireFile("enriched-file", enrichedPath); err != nil {
		return err
	}
	if err := contract.RequireFile("benchmarks", cfg.BenchmarksPath); err != nil {
		return err
	}

	records, err := tabular.ReadEnriched(enrichedPath)
	if err != nil {
		return err
	}
	benchmarks, err := tabular.ReadBenchmarks(cfg.BenchmarksPath)
	if err != nil {
		return err
	}

	start := time.Now()
	report := quality.BuildReport(records, benchmarks, cfg.TolerancePct)
	logging.Default().Info("validation finished", "records", len(records), "categories", len(report.Comparisons), "elapsed", time.Since(start))
	return outwriter.WriteValidationReport(report, cfg)
}

// ExecuteCollect walks the league pages of every configured season and
// appends new injury rows to the injuries file. It is the entry point of
// the 'collect' command.
func ExecuteCollect(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if len(cfg.Seasons) == 0 {
		return contract.FatalConfigf("--seasons is required")
	}

	logger := logging.Default()
	recorder := metrics.NewRecorder("collect")
	client := transfermarkt.NewClient(transfermarkt.Options{
		BaseURL: cfg.BaseURL,
		Delay:   cfg.FetchDelay,
		Timeout: cfg.FetchTimeout,
	}, nil, recorder, logger)
	_, progress, runs := stores(mgr)

	collector, err := NewCollector(CollectorDeps{
		Fetcher:  client,
		Progress: progress,
		Runs:     runs,
		Logger:   logger,
		Recorder: recorder,
	}, CollectOptions{
		CheckpointEvery: cfg.CheckpointEvery,
		CheckpointFile:  cfg.CheckpointFile,
		ConfigParams: map[string]any{
			"seasons":     cfg.Seasons,
			"fetch_delay": cfg.FetchDelay.String(),
			"resume":      cfg.Resume,
		},
	})
	if err != nil {
		return err
	}

	outputPath := orDefault(cfg.InjuriesPath, contract.DefaultInjuriesFile)
	if cfg.Resume {
		onDisk, err := existingCollectedKeys(outputPath)
		if err != nil {
			return err
		}
		var checkpoint []string
		if cfg.CheckpointFile != "" {
			cp, err := iocache.LoadCheckpoint(cfg.CheckpointFile)
			if err != nil {
				contract.LogWarn("Ignoring unreadable checkpoint", err)
			}
			checkpoint = cp.ProcessedUnits
		}
		if err := collector.Resume(ctx, onDisk, checkpoint); err != nil {
			return err
		}
	} else if err := collector.Reset(ctx); err != nil {
		return errors.Wrap(err, "failed to clear progress markers")
	}

	writer, err := tabular.OpenInjuryWriter(outputPath, !cfg.Resume)
	if err != nil {
		return err
	}
	summary, runErr := collector.Run(ctx, cfg.Seasons, writer)
	if err := writer.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			contract.LogWarn("Failed to write metrics file", err)
		}
	}
	if err := outwriter.WriteCollectSummary(summary, cfg); err != nil {
		return err
	}
	return runErr
}

// existingCollectedKeys returns the player-season keys of an injuries file,
// or none when it does not exist yet.
func existingCollectedKeys(path string) (map[string]struct{}, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]struct{}{}, nil
	}
	events, err := tabular.ReadInjuries(path)
	if err != nil {
		return nil, err
	}
	return CollectedKeys(events), nil
}

// ExecuteMerge folds an update file into the injuries file. It is the entry
// point of the 'merge' command.
func ExecuteMerge(_ context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	if err := contract.RequireFile("injuries", cfg.InjuriesPath); err != nil {
		return err
	}
	if err := contract.RequireFile("update", cfg.UpdatePath); err != nil {
		return err
	}

	base, err := tabular.ReadInjuries(cfg.InjuriesPath)
	if err != nil {
		return err
	}
	update, err := tabular.ReadInjuries(cfg.UpdatePath)
	if err != nil {
		return err
	}

	merged, summary := MergeInjuries(base, update)
	if err := writeInjuriesAtomic(cfg.InjuriesPath, merged); err != nil {
		return err
	}
	logging.Default().Info("merged injuries", "path", cfg.InjuriesPath, "final", summary.FinalCount)
	return outwriter.WriteMergeSummary(summary, cfg)
}

// Compile-time checks that every command matches ExecutorFunc.
var (
	_ ExecutorFunc = ExecuteEnrich
	_ ExecutorFunc = ExecuteValidate
	_ ExecutorFunc = ExecuteCollect
	_ ExecutorFunc = ExecuteMerge
)
