package pipeline

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/trace/l4laps"
)

// LapSummary is the per-lap digest stored and printed after a run.
type LapSummary struct {
	SessionID string
	Driver    string
	LapNumber int
	Start     time.Duration
	LapTime   time.Duration
	Distance  float64 // metres integrated from speed
	MaxSpeed  float64
	MeanSpeed float64
	Samples   int
	Fastest   bool
}

// Summarize digests one lap slice. Speed statistics ignore missing values.
func Summarize(sessionID string, lap l4laps.Lap, t *l3channels.Table) LapSummary {
	s := LapSummary{
		SessionID: sessionID,
		Driver:    lap.Driver,
		LapNumber: lap.Number,
		Start:     lap.Start,
		LapTime:   lap.Duration(),
		MaxSpeed:  math.NaN(),
		MeanSpeed: math.NaN(),
	}
	if t == nil {
		return s
	}
	s.Samples = t.Len()
	if d, ok := t.Column(l3channels.Distance); ok && len(d) > 0 {
		s.Distance = d[len(d)-1]
	}
	if speed, ok := t.Column(l3channels.Speed); ok {
		valid := make([]float64, 0, len(speed))
		for _, v := range speed {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		if len(valid) > 0 {
			s.MaxSpeed = floats.Max(valid)
			s.MeanSpeed = stat.Mean(valid, nil)
		}
	}
	return s
}

// markFastest flags the quickest summary.
func markFastest(summaries []LapSummary) {
	best := -1
	for i, s := range summaries {
		if s.LapTime > 0 && (best < 0 || s.LapTime < summaries[best].LapTime) {
			best = i
		}
	}
	if best >= 0 {
		summaries[best].Fastest = true
	}
}
