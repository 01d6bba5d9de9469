package l4laps

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// Lap is one timed lap of one driver. Number 0 means the feed did not
// number the lap.
type Lap struct {
	Driver string
	Number int
	Start  time.Duration
	End    time.Duration
	PitIn  bool
	PitOut bool
}

// Duration returns the lap time.
func (l Lap) Duration() time.Duration { return l.End - l.Start }

// Clean reports whether the lap is representative: numbered and neither
// entering nor leaving the pits.
func (l Lap) Clean() bool {
	return l.Number > 0 && !l.PitIn && !l.PitOut
}

func (l Lap) String() string {
	return fmt.Sprintf("driver %s lap %d [%v, %v]", l.Driver, l.Number, l.Start, l.End)
}

// LapStats counts the records FromRecords could not use.
type LapStats struct {
	Records     int
	Laps        int
	MissingTime int // no end time or lap time reported
	Unnumbered  int
	Pit         int
}

// FromRecords converts raw timing rows into laps sorted by driver and
// start time. A lap starts at Time - LapTime; records without either are
// skipped and counted.
func FromRecords(records []l1samples.LapRecord) ([]Lap, LapStats) {
	stats := LapStats{Records: len(records)}
	laps := make([]Lap, 0, len(records))
	for _, r := range records {
		if r.Time == nil || r.LapTime == nil {
			stats.MissingTime++
			continue
		}
		l := Lap{
			Driver: r.Driver,
			Start:  *r.Time - *r.LapTime,
			End:    *r.Time,
			PitIn:  r.PitInTime != nil,
			PitOut: r.PitOutTime != nil,
		}
		if r.LapNumber != nil {
			l.Number = *r.LapNumber
		} else {
			stats.Unnumbered++
		}
		if l.PitIn || l.PitOut {
			stats.Pit++
		}
		laps = append(laps, l)
	}
	sort.SliceStable(laps, func(i, j int) bool {
		if laps[i].Driver != laps[j].Driver {
			return laps[i].Driver < laps[j].Driver
		}
		return laps[i].Start < laps[j].Start
	})
	stats.Laps = len(laps)
	return laps, stats
}

// Clean returns the representative laps, see Lap.Clean.
func Clean(laps []Lap) []Lap {
	var out []Lap
	for _, l := range laps {
		if l.Clean() {
			out = append(out, l)
		}
	}
	return out
}

// ForDriver returns the laps of one driver.
func ForDriver(laps []Lap, driver string) []Lap {
	var out []Lap
	for _, l := range laps {
		if l.Driver == driver {
			out = append(out, l)
		}
	}
	return out
}

// Fastest returns the shortest lap among laps, false when laps is empty.
func Fastest(laps []Lap) (Lap, bool) {
	if len(laps) == 0 {
		return Lap{}, false
	}
	best := laps[0]
	for _, l := range laps[1:] {
		if l.Duration() < best.Duration() {
			best = l
		}
	}
	return best, true
}
