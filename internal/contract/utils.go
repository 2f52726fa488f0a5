package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/huangsam/injuryscope/schema"
)

// Benchmark range label constants.
const (
	WithinValue  = "Within"  // Within value
	OutsideValue = "Outside" // Outside value
	NoDataValue  = "No data" // No data value
)

// Color variables for console output.
var (
	WithinColor   = color.New(color.FgGreen)               // WithinColor represents an agreeing benchmark.
	OutsideColor  = color.New(color.FgRed, color.Bold)     // OutsideColor represents a deviating benchmark.
	NoDataColor   = color.New(color.FgCyan)                // NoDataColor represents informational / missing signal.
	EnrichedColor = color.New(color.FgGreen)               // EnrichedColor represents a fully enriched record.
	PartialColor  = color.New(color.FgYellow)              // PartialColor represents standard caution, not bold.
	FailedColor   = color.New(color.FgMagenta, color.Bold) // FailedColor represents a recovered failure.
)

// GetRangeLabel returns a plain text label for a benchmark comparison.
// This is the core logic used for CSV, JSON, and table printing.
func GetRangeLabel(comparison schema.BenchmarkComparison) string {
	switch {
	case comparison.CollectedCount == 0:
		return NoDataValue
	case comparison.WithinExpectedRange:
		return WithinValue
	default:
		return OutsideValue
	}
}

// GetColorRangeLabel returns a colored text label for console output (table).
func GetColorRangeLabel(comparison schema.BenchmarkComparison) string {
	text := GetRangeLabel(comparison)

	switch text {
	case WithinValue:
		return WithinColor.Sprint(text)
	case OutsideValue:
		return OutsideColor.Sprint(text)
	default:
		return NoDataColor.Sprint(text)
	}
}

// GetColorStatus returns a colored record status for console output.
func GetColorStatus(status schema.RecordStatus) string {
	switch status {
	case schema.StatusEnriched:
		return EnrichedColor.Sprint(status)
	case schema.StatusPartial:
		return PartialColor.Sprint(status)
	case schema.StatusFailed:
		return FailedColor.Sprint(status)
	default:
		return string(status)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path and format type. It falls back to os.Stdout when the path is empty.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program. Configuration errors get a
// pointer to the usage text.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	if IsFatal(err) {
		_, _ = fmt.Fprintln(os.Stderr, "Run with --help to see the available flags.")
	}
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// homeFile returns name under the user's home directory, or name itself
// when the home directory cannot be determined.
func homeFile(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the fetch cache.
func GetCacheDBFilePath() string {
	return homeFile(".injuryscope_cache.db")
}

// GetProgressDBFilePath returns the path to the SQLite DB file for progress markers.
func GetProgressDBFilePath() string {
	return homeFile(".injuryscope_progress.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for run history.
func GetRunDBFilePath() string {
	return homeFile(".injuryscope_runs.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
