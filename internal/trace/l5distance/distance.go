package l5distance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/laptrace/internal/config"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/units"
)

// Annotator adds distance channels to channel tables.
type Annotator struct {
	// SpeedUnit is the unit of the Speed channel; empty means km/h.
	SpeedUnit string
}

// NewAnnotator returns an Annotator configured from tuning parameters.
func NewAnnotator(cfg *config.TuningConfig) *Annotator {
	if cfg == nil {
		return &Annotator{SpeedUnit: units.KMPH}
	}
	return &Annotator{SpeedUnit: cfg.GetSpeedUnit()}
}

func (a *Annotator) unit() string {
	if a == nil || a.SpeedUnit == "" {
		return units.KMPH
	}
	return a.SpeedUnit
}

var defaultAnnotator = &Annotator{SpeedUnit: units.KMPH}

// AddDistance integrates a km/h Speed channel, see Annotator.AddDistance.
func AddDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	return defaultAnnotator.AddDistance(t, dropExisting)
}

// AddRelativeDistance normalises Distance, see Annotator.AddRelativeDistance.
func AddRelativeDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	return defaultAnnotator.AddRelativeDistance(t, dropExisting)
}

// AddDifferentialDistance adds per-row distance steps, see
// Annotator.AddDifferentialDistance.
func AddDifferentialDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	return defaultAnnotator.AddDifferentialDistance(t, dropExisting)
}

// populated reports whether t has column name with any non-zero value.
func populated(t *l3channels.Table, name string) bool {
	c, ok := t.Column(name)
	if !ok {
		return false
	}
	for _, v := range c {
		if v != 0 && !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// steps returns the distance in metres covered between consecutive rows,
// integrating Speed with the trapezoidal rule. The first step is zero, as
// is any step next to a missing speed value.
func (a *Annotator) steps(t *l3channels.Table) ([]float64, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("integrate speed: %w", l3channels.ErrInsufficientData)
	}
	speed, ok := t.Column(l3channels.Speed)
	if !ok {
		return nil, fmt.Errorf("integrate speed for driver %s: %s: %w", t.Meta().Driver, l3channels.Speed, l3channels.ErrMissingChannel)
	}
	unit := a.unit()
	ds := make([]float64, t.Len())
	for i := 1; i < t.Len(); i++ {
		v0, v1 := speed[i-1], speed[i]
		if math.IsNaN(v0) || math.IsNaN(v1) {
			continue
		}
		dt := (t.Time(i) - t.Time(i-1)).Seconds()
		ds[i] = 0.5 * (units.ToMPS(v0, unit) + units.ToMPS(v1, unit)) * dt
	}
	return ds, nil
}

// AddDifferentialDistance adds DifferentialDistance, the metres covered
// since the previous row. An existing non-zero column is kept unless
// dropExisting is set.
func (a *Annotator) AddDifferentialDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	if !dropExisting && t != nil && populated(t, l3channels.DifferentialDistance) {
		return t, nil
	}
	ds, err := a.steps(t)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(l3channels.DifferentialDistance, ds)
}

// AddDistance adds Distance, the metres covered since the first row,
// integrated from Speed over Time. Distance[0] is 0. An existing non-zero
// Distance is kept unless dropExisting is set.
func (a *Annotator) AddDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	if !dropExisting && t != nil && populated(t, l3channels.Distance) {
		return t, nil
	}
	ds, err := a.steps(t)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(l3channels.Distance, floats.CumSum(make([]float64, len(ds)), ds))
}

// AddRelativeDistance adds RelativeDistance, Distance divided by its
// maximum so that it spans [0, 1] over the table. Distance is computed
// first when missing. A table that never moves gets all zeros.
func (a *Annotator) AddRelativeDistance(t *l3channels.Table, dropExisting bool) (*l3channels.Table, error) {
	if !dropExisting && t != nil && populated(t, l3channels.RelativeDistance) {
		return t, nil
	}
	withDist, err := a.AddDistance(t, false)
	if err != nil {
		return nil, err
	}
	dist, _ := withDist.Column(l3channels.Distance)

	peak := 0.0
	for _, d := range dist {
		if !math.IsNaN(d) && d > peak {
			peak = d
		}
	}
	rel := make([]float64, len(dist))
	if peak > 0 {
		floats.ScaleTo(rel, 1/peak, dist)
	}
	return withDist.WithColumn(l3channels.RelativeDistance, rel)
}
