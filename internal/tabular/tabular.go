// Package tabular reads and writes the CSV files injuryscope exchanges with
// the rest of the analysis: injury records, reference tables and the
// enriched output.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/huangsam/injuryscope/core/dates"
	"github.com/huangsam/injuryscope/internal/contract"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// row is one CSV record addressed by header name.
type row struct {
	index  map[string]int
	fields []string
	line   int
}

// get returns the trimmed value of column, or "" when the column is absent.
func (r row) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// optInt parses column as a count. Blank cells and NaN placeholders are nil.
// Float renderings such as "45.0" are accepted.
func (r row) optInt(column string) *int {
	s := r.get(column)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		return &n
	}
	n, ok := dates.LeadingInt(s)
	if !ok {
		return nil
	}
	return &n
}

// readRows parses a header-mapped CSV stream. Unknown columns are ignored and
// short trailing rows, such as a line cut off by a crash, are dropped.
func readRows(r io.Reader, required ...string) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, errors.Newf("missing required column %q", col)
		}
	}

	var rows []row
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read line %d", line)
		}
		if len(rec) < len(header) {
			continue
		}
		rows = append(rows, row{index: index, fields: rec, line: line})
	}
	return rows, nil
}

// readFile opens path and parses it with readRows. Both a missing file and a
// malformed header are FatalConfig.
func readFile(path string, required ...string) ([]row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, contract.FatalConfig(err, "cannot open %s", path)
	}
	defer func() { _ = file.Close() }()

	rows, err := readRows(file, required...)
	if err != nil {
		return nil, contract.FatalConfig(err, "cannot parse %s", path)
	}
	return rows, nil
}

// formatOptInt renders an optional count, blank when nil.
func formatOptInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
