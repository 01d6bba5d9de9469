package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/banshee-data/laptrace/internal/timeutil"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

var fastestColor = color.New(color.FgMagenta, color.Bold)

// PrintTrackSummary renders the build statistics of a track map.
func PrintTrackSummary(w io.Writer, track *l2track.OrderedTrack) error {
	s := track.Stats()
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Session", "Points", "Excluded", "Dead ends", "Strays", "Length (m)", "Mean step", "Max step"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	row := []string{
		track.SessionID(),
		strconv.Itoa(track.Len()),
		strconv.Itoa(len(track.Excluded())),
		strconv.Itoa(s.DeadEnds),
		strconv.Itoa(s.Strays),
		fmt.Sprintf("%.1f", track.Length()),
		fmt.Sprintf("%.2f", s.MeanStep),
		fmt.Sprintf("%.2f", s.MaxStep),
	}
	if err := table.Bulk([][]string{row}); err != nil {
		return err
	}
	return table.Render()
}

// PrintLapSummary renders one row per lap; the fastest lap of each driver
// is highlighted.
func PrintLapSummary(w io.Writer, summaries []pipeline.LapSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Driver", "Lap", "Time", "Distance (m)", "Max speed", "Mean speed", "Samples", ""})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		mark := ""
		if s.Fastest {
			mark = fastestColor.Sprint("fastest")
		}
		data = append(data, []string{
			s.Driver,
			strconv.Itoa(s.LapNumber),
			timeutil.FormatLapTime(s.LapTime),
			fmt.Sprintf("%.1f", s.Distance),
			formatSpeed(s.MaxSpeed),
			formatSpeed(s.MeanSpeed),
			strconv.Itoa(s.Samples),
			mark,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatSpeed(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}
