package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

func newCSVWriter(w io.Writer) *csv.Writer {
	return csv.NewWriter(w)
}

// appendFile is a CSV file that only grows. Every row is flushed as soon as
// it is written so an interrupted run loses at most the row in flight.
type appendFile struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
	rows int
}

// openAppend opens path for appending rows under header. With truncate set
// the file is recreated. Otherwise an existing file must carry the same
// header, and a trailing partial line is cut off before appending.
func openAppend(path string, header []string, truncate bool) (*appendFile, error) {
	writeHeader := true
	if !truncate {
		ok, err := prepareExisting(path, header)
		if err != nil {
			return nil, err
		}
		writeHeader = !ok
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if truncate {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, contract.FatalConfig(err, "cannot open output %s", path)
	}

	af := &appendFile{file: file, csv: csv.NewWriter(file)}
	if writeHeader {
		if err := af.write(header); err != nil {
			_ = file.Close()
			return nil, err
		}
		af.rows = 0
	}
	return af, nil
}

// prepareExisting reports whether path already holds rows under header.
func prepareExisting(path string, header []string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, contract.FatalConfig(err, "cannot read output %s", path)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		cut := bytes.LastIndexByte(data, '\n') + 1
		if err := os.Truncate(path, int64(cut)); err != nil {
			return false, contract.FatalConfig(err, "cannot repair output %s", path)
		}
		data = data[:cut]
	}
	if len(data) == 0 {
		return false, nil
	}

	existing, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return false, contract.FatalConfig(err, "cannot read header of %s", path)
	}
	if !slices.Equal(existing, header) {
		return false, contract.FatalConfigf("output %s has a different header; refusing to append", path)
	}
	return true, nil
}

func (a *appendFile) write(fields []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.csv.Write(fields); err != nil {
		return errors.Wrap(err, "failed to write row")
	}
	a.csv.Flush()
	if err := a.csv.Error(); err != nil {
		return errors.Wrap(err, "failed to flush row")
	}
	a.rows++
	return nil
}

// Rows returns the number of rows appended since the file was opened.
func (a *appendFile) Rows() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rows
}

// Close flushes and closes the file.
func (a *appendFile) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.csv.Flush()
	if err := a.csv.Error(); err != nil {
		_ = a.file.Close()
		return errors.Wrap(err, "failed to flush output")
	}
	return a.file.Close()
}

// EnrichedWriter appends enriched records to the output file.
type EnrichedWriter struct {
	*appendFile
}

var _ contract.EnrichedSink = &EnrichedWriter{} // Compile-time check

// OpenEnrichedWriter opens the enriched output at path. A fresh run passes
// truncate; a resumed run appends to what is already there.
func OpenEnrichedWriter(path string, truncate bool) (*EnrichedWriter, error) {
	af, err := openAppend(path, EnrichedHeader, truncate)
	if err != nil {
		return nil, err
	}
	return &EnrichedWriter{appendFile: af}, nil
}

// Append writes one record.
func (w *EnrichedWriter) Append(record schema.EnrichedInjuryRecord) error {
	return w.write(EnrichedFields(record))
}

// InjuryWriter appends collected injury events to a file.
type InjuryWriter struct {
	*appendFile
}

var _ contract.InjurySink = &InjuryWriter{} // Compile-time check

// OpenInjuryWriter opens an injury record file at path for appending.
func OpenInjuryWriter(path string, truncate bool) (*InjuryWriter, error) {
	af, err := openAppend(path, InjuryHeader, truncate)
	if err != nil {
		return nil, err
	}
	return &InjuryWriter{appendFile: af}, nil
}

// Append writes one event.
func (w *InjuryWriter) Append(event schema.InjuryEvent) error {
	return w.write(injuryFields(event))
}
