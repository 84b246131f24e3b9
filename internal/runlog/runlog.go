// Package runlog keeps an append-only CSV record of the imports and
// matches that changed the ledger, one row per source file.
package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/brentwalther/jcf-sub000/internal/merge"
)

// Entry records one source file passing through import or match.
type Entry struct {
	Timestamp time.Time
	Command   string
	Source    string
	// Format is the parser that read Source, e.g. "ledger" or "csv:chase".
	Format string

	Transactions int
	Splits       int
	// Dropped, Unbalanced and Overwritten come from the merge report.
	Dropped     int
	Unbalanced  int
	Overwritten int
	// Duplicates counts statement rows match skipped.
	Duplicates int

	CommitHash string
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,command,source,format,transactions,splits,dropped,unbalanced,overwritten,duplicates,commit_hash"

var columns = strings.Split(Header, ",")

const (
	logFile = "run-log.csv"

	colTimestamp  = 0
	colCommand    = 1
	colSource     = 2
	colFormat     = 3
	colFirstCount = 4
)

// Path returns the run log location under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "logs", logFile)
}

// AddReport copies the merge outcome into e.
func (e *Entry) AddReport(r merge.Report) {
	e.Dropped = len(r.Dropped)
	e.Unbalanced = len(r.Unbalanced)
	e.Overwritten = len(r.OverwrittenAccounts) + len(r.OverwrittenTransactions)
}

// counts lists the integer columns in header order.
func (e *Entry) counts() []*int {
	return []*int{&e.Transactions, &e.Splits, &e.Dropped, &e.Unbalanced, &e.Overwritten, &e.Duplicates}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, 0, len(columns))
	row = append(row, e.Timestamp.UTC().Format(time.RFC3339), e.Command, e.Source, e.Format)
	for _, n := range e.counts() {
		row = append(row, strconv.Itoa(*n))
	}
	return append(row, e.CommitHash)
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != len(columns) {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", len(columns), len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	e := Entry{
		Timestamp:  ts,
		Command:    record[colCommand],
		Source:     record[colSource],
		Format:     record[colFormat],
		CommitHash: record[len(record)-1],
	}
	for i, n := range e.counts() {
		col := colFirstCount + i
		v, err := strconv.Atoi(record[col])
		if err != nil || v < 0 {
			return Entry{}, fmt.Errorf("%s must be a non-negative integer, got %q", columns[col], record[col])
		}
		*n = v
	}
	return e, nil
}

// Append adds entries to the run log under repoRoot. A new or empty file
// gets the header first.
func Append(repoRoot string, entries []Entry) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing %s entry for %s: %w", e.Command, e.Source, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns the run log under repoRoot, oldest first. A missing file
// yields no entries.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(Path(repoRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run log header: %w", err)
	}
	if !slices.Equal(header, columns) {
		return nil, fmt.Errorf("unexpected run log header %q", strings.Join(header, ","))
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading run log: %w", err)
		}
		e, err := UnmarshalEntry(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
}
