// Package ingest reads session data exported from timing feeds as CSV.
//
// Every reader locates its columns by header name, so column order does
// not matter and extra columns are ignored. Header names are matched
// case-insensitively with underscores and spaces removed, so "SessionTime",
// "session_time" and "Session Time" are the same column.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/laptrace/internal/timeutil"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// dateLayouts are tried in order for absolute timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func normalise(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(name, " ", "")
}

// table is a CSV file with an indexed header.
type table struct {
	name string
	r    *csv.Reader
	cols map[string]int
	line int
}

func newTable(name string, r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	t := &table{name: name, r: cr, cols: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		// Dataframe exports lead with an unnamed index column.
		if h == "" {
			continue
		}
		t.cols[normalise(h)] = i
	}
	return t, nil
}

// column returns the index of the first present alias, or -1.
func (t *table) column(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.cols[normalise(a)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) require(aliases ...string) (int, error) {
	if i := t.column(aliases...); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%s: %s: %w", t.name, aliases[0], ErrMissingColumn)
}

// next returns the next record, io.EOF at the end.
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	t.line++
	return rec, nil
}

func (t *table) errorf(col string, err error) error {
	return fmt.Errorf("%s line %d: %s: %w", t.name, t.line, col, err)
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "nat", "none", "null":
		return true
	}
	return false
}

// parseFloat reads a float; missing cells are NaN.
func parseFloat(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseInt reads an integer that may be written as a float ("3.0").
func parseInt(s string) (int, bool, error) {
	if isMissing(s) {
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if f != math.Trunc(f) {
		return 0, false, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), true, nil
}

func parseBool(s string) (bool, error) {
	if isMissing(s) {
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean", s)
	}
	return f != 0, nil
}

// parseDuration reads an optional session time.
func parseDuration(s string) (*time.Duration, error) {
	if isMissing(s) {
		return nil, nil
	}
	d, err := timeutil.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(s string) (time.Time, error) {
	if isMissing(s) {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
