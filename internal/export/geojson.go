package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l5distance"
)

// GeoJSONOptions tunes WriteTrackGeoJSON.
type GeoJSONOptions struct {
	// SimplifyTolerance simplifies the outline with Douglas-Peucker; zero
	// keeps every loop point.
	SimplifyTolerance float64
	// IncludeExcluded adds the rejected outliers as a MultiPoint feature.
	IncludeExcluded bool
	// Markers are added as Point features with their track distance.
	Markers []l5distance.Marker
}

// TrackFeatureCollection builds the GeoJSON form of a track map. Track
// coordinates are in the feed's planar units, not WGS84.
func TrackFeatureCollection(track *l2track.OrderedTrack, opts GeoJSONOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	outline := geojson.NewFeature(track.Outline(opts.SimplifyTolerance))
	outline.Properties["kind"] = "track"
	outline.Properties["session_id"] = track.SessionID()
	outline.Properties["length_m"] = track.Length()
	outline.Properties["points"] = track.Len()
	fc.Append(outline)

	if opts.IncludeExcluded {
		var mp orb.MultiPoint
		for _, p := range track.Excluded() {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		if len(mp) > 0 {
			f := geojson.NewFeature(mp)
			f.Properties["kind"] = "outliers"
			fc.Append(f)
		}
	}

	for _, m := range l5distance.ProjectMarkers(track, opts.Markers) {
		f := geojson.NewFeature(orb.Point{m.X, m.Y})
		f.Properties["kind"] = "marker"
		f.Properties["name"] = m.Name
		f.Properties["distance_m"] = m.Distance
		fc.Append(f)
	}
	return fc
}

// WriteTrackGeoJSON writes the track map as a GeoJSON FeatureCollection.
func WriteTrackGeoJSON(w io.Writer, track *l2track.OrderedTrack, opts GeoJSONOptions) error {
	data, err := json.MarshalIndent(TrackFeatureCollection(track, opts), "", "  ")
	if err != nil {
		return fmt.Errorf("encode track geojson: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write track geojson: %w", err)
	}
	return nil
}
