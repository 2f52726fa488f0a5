package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/valyala/bytebufferpool"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// ReportTitle heads the text validation report.
const ReportTitle = "INJURY DATA VALIDATION REPORT"

// maxLabelWidth bounds free text labels in report tables.
const maxLabelWidth = 28

// WriteValidationReport prints the validation report in the configured
// format. Text is the default; CSV carries the benchmark comparison only.
func WriteValidationReport(report schema.ValidationReport, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writeJSON(w, report)
		case schema.CSVOut:
			return writeComparisonCSV(w, report, cfg)
		default:
			return RenderReport(w, report, cfg)
		}
	}, "Wrote validation report")
}

// RenderReport writes the five-section text report.
func RenderReport(w io.Writer, report schema.ValidationReport, cfg *contract.Config) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	width := reportWidth(cfg)
	heavy := strings.Repeat("=", width)
	light := strings.Repeat("-", width)
	fmtFloat := createFormatters(cfg.Precision)

	_, _ = fmt.Fprintf(buf, "%s\n%s\n%s\n\n", heavy, ReportTitle, heavy)

	sectionHeader(buf, "1. DATA QUALITY METRICS", light)
	m := report.Metrics
	keyValues(buf, [][2]string{
		{"Total Records", strconv.Itoa(m.TotalRecords)},
		{"Complete Records", strconv.Itoa(m.CompleteRecords)},
		{"Completeness Score", fmtFloat(m.CompletenessScore) + "%"},
		{"Unique Players", strconv.Itoa(m.UniquePlayers)},
		{"Unique Teams", strconv.Itoa(m.UniqueTeams)},
		{"Seasons Covered", strings.Join(m.Seasons, ", ")},
		{"Missing Injury Type", strconv.Itoa(m.MissingInjuryType)},
		{"Missing Injury Date", strconv.Itoa(m.MissingInjuryDate)},
		{"Missing Return Date", strconv.Itoa(m.MissingReturnDate)},
		{"Missing Days Out", strconv.Itoa(m.MissingDaysOut)},
		{"Missing Games Missed", strconv.Itoa(m.MissingGamesMissed)},
		{"Missing Performance", strconv.Itoa(m.MissingPerformance)},
		{"Duplicate Records", strconv.Itoa(m.Duplicates)},
	})

	sectionHeader(buf, "2. RECOVERY TIME COMPARISON (Collected vs Research Benchmarks)", light)
	_, _ = fmt.Fprintf(buf, "  Expected range: within %s%% of the benchmark median\n\n", fmtFloat(report.TolerancePct))
	if len(report.Comparisons) == 0 {
		noData(buf)
	} else {
		rows := make([][]string, 0, len(report.Comparisons))
		for _, c := range report.Comparisons {
			label := contract.GetRangeLabel(c)
			if cfg.UseColors {
				label = contract.GetColorRangeLabel(c)
			}
			rows = append(rows, []string{
				contract.TruncateText(c.Category, maxLabelWidth),
				strconv.Itoa(c.CollectedCount),
				fmtFloat(c.CollectedMedian),
				fmtFloat(c.CollectedMean),
				fmtFloat(c.BenchmarkMedian),
				fmtFloat(c.DiffDays),
				fmtFloat(c.DiffPct),
				label,
			})
		}
		if err := renderTable(buf, []string{"Category", "N", "Median", "Mean", "Bench Median", "Diff Days", "Diff %", "Range"}, rows); err != nil {
			return err
		}
	}

	sectionHeader(buf, "3. INJURY PATTERNS BY POSITION", light)
	if len(report.Positions) == 0 {
		noData(buf)
	} else {
		rows := make([][]string, 0, len(report.Positions))
		for _, p := range report.Positions {
			rows = append(rows, []string{
				contract.TruncateText(p.Position, maxLabelWidth),
				strconv.Itoa(p.Count),
				fmtFloat(p.MeanDaysOut),
				fmtFloat(p.MedianDaysOut),
				fmtFloat(p.StdDaysOut),
				fmtFloat(p.MeanGamesMissed),
				fmtFloat(p.MedianGamesMissed),
			})
		}
		if err := renderTable(buf, []string{"Position", "Injuries", "Mean Days", "Median Days", "Std Days", "Mean Games", "Median Games"}, rows); err != nil {
			return err
		}
	}

	sectionHeader(buf, "4. SEASONAL TRENDS", light)
	if len(report.Seasons) == 0 {
		noData(buf)
	} else {
		rows := make([][]string, 0, len(report.Seasons))
		for _, s := range report.Seasons {
			rows = append(rows, []string{
				s.Season,
				strconv.Itoa(s.Count),
				fmtFloat(s.MedianDaysOut),
				fmtFloat(s.MedianGamesMissed),
			})
		}
		if err := renderTable(buf, []string{"Season", "Injuries", "Median Days", "Median Games"}, rows); err != nil {
			return err
		}
	}

	sectionHeader(buf, "5. PERFORMANCE IMPACT ANALYSIS", light)
	impact := report.Impact
	if impact.Records == 0 {
		noData(buf)
	} else {
		keyValues(buf, [][2]string{
			{"Records With Performance", strconv.Itoa(impact.Records)},
			{"Mean Score Before", fmtFloat(impact.MeanBefore)},
			{"Mean Score After", fmtFloat(impact.MeanAfter)},
			{"Mean Change", fmtFloat(impact.MeanChange)},
			{"Mean Change Pct", fmtFloat(impact.MeanChangePct) + "%"},
			{"Declined", strconv.Itoa(impact.Declined)},
			{"Improved", strconv.Itoa(impact.Improved)},
			{"Unchanged", strconv.Itoa(impact.Unchanged)},
		})
	}

	_, _ = fmt.Fprintf(buf, "%s\nEnd of Report\n%s\n", heavy, heavy)

	_, err := w.Write(buf.B)
	return err
}

func sectionHeader(buf *bytebufferpool.ByteBuffer, title, rule string) {
	_, _ = fmt.Fprintf(buf, "%s\n%s\n", title, rule)
}

func keyValues(buf *bytebufferpool.ByteBuffer, pairs [][2]string) {
	for _, kv := range pairs {
		_, _ = fmt.Fprintf(buf, "  %s: %s\n", kv[0], kv[1])
	}
	_, _ = buf.WriteString("\n")
}

func noData(buf *bytebufferpool.ByteBuffer) {
	_, _ = buf.WriteString("  No data\n\n")
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// writeComparisonCSV writes the benchmark comparison in CSV format.
func writeComparisonCSV(w io.Writer, report schema.ValidationReport, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)
	rows := make([][]string, 0, len(report.Comparisons))
	for _, c := range report.Comparisons {
		rows = append(rows, []string{
			c.Category,
			strconv.Itoa(c.CollectedCount),
			fmtFloat(c.CollectedMedian),
			fmtFloat(c.CollectedMean),
			fmtFloat(c.CollectedStd),
			fmtFloat(c.BenchmarkMedian),
			fmtFloat(c.BenchmarkMean),
			fmtFloat(c.DiffDays),
			fmtFloat(c.DiffPct),
			strconv.FormatBool(c.WithinExpectedRange),
		})
	}
	return writeCSVWithHeader(w, []string{
		"category", "collected_count", "collected_median", "collected_mean", "collected_std",
		"benchmark_median", "benchmark_mean", "diff_days", "diff_pct", "within_expected_range",
	}, rows)
}
