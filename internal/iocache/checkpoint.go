package iocache

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// Checkpoint is the JSON snapshot of processed units.
type Checkpoint struct {
	ProcessedUnits []string  `json:"processed_units"`
	LastUpdated    time.Time `json:"last_updated"`
}

// LoadCheckpoint reads the checkpoint at path. A missing file is an empty
// checkpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cp, nil
	}
	if err != nil {
		return cp, errors.Wrapf(err, "failed to read checkpoint %s", path)
	}
	if err := sonic.Unmarshal(data, &cp); err != nil {
		return cp, errors.Wrapf(err, "failed to decode checkpoint %s", path)
	}
	return cp, nil
}

// SaveCheckpoint writes keys to path through a temporary file and rename so
// a crash never leaves a truncated checkpoint behind.
func SaveCheckpoint(path string, keys []string, now time.Time) error {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	data, err := sonic.Marshal(Checkpoint{ProcessedUnits: sorted, LastUpdated: now.UTC()})
	if err != nil {
		return errors.Wrap(err, "failed to encode checkpoint")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create checkpoint temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close checkpoint")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to replace checkpoint %s", path)
	}
	return nil
}
