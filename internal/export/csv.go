// Package export writes merged telemetry, lap summaries and track maps to
// files and terminal tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

// WriteTableCSV writes t as CSV: session_time in seconds, date, source,
// then every channel in table order. Missing values are empty cells.
func WriteTableCSV(w io.Writer, t *l3channels.Table) error {
	cw := csv.NewWriter(w)
	channels := t.Channels()

	header := append([]string{"driver", "session_time", "date", "source"}, channels...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	cols := make([][]float64, len(channels))
	for i, name := range channels {
		cols[i], _ = t.Column(name)
	}
	driver := t.Meta().Driver
	row := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		row[0] = driver
		row[1] = strconv.FormatFloat(t.Time(i).Seconds(), 'f', -1, 64)
		row[2] = ""
		if d := t.Date(i); !d.IsZero() {
			row[2] = d.UTC().Format(time.RFC3339Nano)
		}
		row[3] = string(t.Source(i))
		for j, c := range cols {
			row[4+j] = formatValue(c[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
