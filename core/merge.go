package core

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/tabular"
	"github.com/huangsam/injuryscope/schema"
)

// MergeInjuries appends update to base, drops repeated events keeping the
// first one, and orders the result by season (newest first), team and
// player.
func MergeInjuries(base, update []schema.InjuryEvent) ([]schema.InjuryEvent, schema.MergeSummary) {
	summary := schema.MergeSummary{BaseCount: len(base), UpdateCount: len(update)}

	merged := make([]schema.InjuryEvent, 0, len(base)+len(update))
	seen := make(map[string]struct{}, len(base)+len(update))
	for _, events := range [][]schema.InjuryEvent{base, update} {
		for _, e := range events {
			key := e.Key()
			if _, dup := seen[key]; dup {
				summary.DuplicatesRemoved++
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Season != b.Season {
			return a.Season > b.Season
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.PlayerName < b.PlayerName
	})
	summary.FinalCount = len(merged)
	return merged, summary
}

// writeInjuriesAtomic replaces path with events through a temporary file in
// the same directory.
func writeInjuriesAtomic(path string, events []schema.InjuryEvent) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create merge temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tabular.WriteInjuries(tmp, events); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close merge temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}
