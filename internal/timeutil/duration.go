package timeutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timedelta matches the "0 days 00:01:23.456000" form written by
// dataframe exports of session and lap times.
var timedelta = regexp.MustCompile(`^(-?\d+) days? (\d{1,2}):(\d{2}):(\d{2}(?:\.\d+)?)$`)

// ParseDuration reads a session-relative time. It accepts Go duration
// strings ("83.456s", "1m23.456s"), plain seconds ("83.456"), clock form
// ("1:23.456", "00:01:23.456") and dataframe timedeltas
// ("0 days 00:01:23.456000").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse duration: empty value")
	}
	if m := timedelta.FindStringSubmatch(s); m != nil {
		days, _ := strconv.Atoi(m[1])
		rest, err := parseClock(m[2] + ":" + m[3] + ":" + m[4])
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		return time.Duration(days)*24*time.Hour + rest, nil
	}
	if strings.Contains(s, ":") {
		d, err := parseClock(s)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		return d, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("parse duration %q: not finite", s)
		}
		return Seconds(secs), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}

// parseClock reads "m:ss.fff" or "h:mm:ss.fff".
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("want m:ss or h:mm:ss")
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("bad seconds %q", parts[len(parts)-1])
	}
	total := secs
	mult := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad field %q", parts[i])
		}
		total += float64(n) * mult
		mult *= 60
	}
	return Seconds(total), nil
}

// Seconds converts fractional seconds to a Duration, rounded to the
// nearest microsecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

// FormatLapTime renders d as "m:ss.fff", the way lap times are shown on
// timing screens. Negative durations get a leading minus.
func FormatLapTime(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	ms := (d % time.Minute) / time.Millisecond
	return fmt.Sprintf("%s%d:%02d.%03d", sign, m, ms/1000, ms%1000)
}
