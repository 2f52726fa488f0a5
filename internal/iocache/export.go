package iocache

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/parquet"
)

// ExecuteRunsExport exports run history from store to two Parquet files
// derived from outputFile.
func ExecuteRunsExport(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run store is not initialized")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return errors.Wrap(err, "failed to get run status")
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total unit outcomes: %d\n", status.TableSizes[outcomesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve runs")
	}
	outcomes, err := store.GetAllOutcomes()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve run outcomes")
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return errors.Wrap(err, "failed to write runs")
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	outcomesFile := outputFile + ".outcomes.parquet"
	if err := parquet.WriteOutcomesParquet(parquet.ConvertOutcomeRecords(outcomes), outcomesFile); err != nil {
		return errors.Wrap(err, "failed to write run outcomes")
	}
	_, _ = fmt.Fprintf(w, "Exported %d unit outcomes to: %s\n", len(outcomes), outcomesFile)
	return nil
}
