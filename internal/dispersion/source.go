package dispersion

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/threat-zone-service/internal/geo"
)

// ErrUnresolvedPosition is returned when a source has neither a local nor a
// geographic position.
var ErrUnresolvedPosition = errors.New("source position unresolved")

// Position is where a source sits, either in local meters or in
// latitude/longitude.
type Position interface {
	resolve(f geo.Frame) (x, y, lat, lon float64)
}

// LocalPosition places a source in the local wind-aligned frame.
type LocalPosition struct {
	X0, Y0 float64
}

func (p LocalPosition) resolve(f geo.Frame) (x, y, lat, lon float64) {
	lat, lon = f.ToLatLon(p.X0, p.Y0)
	return p.X0, p.Y0, lat, lon
}

// GeoPosition places a source at a latitude and longitude.
type GeoPosition struct {
	Lat, Lon float64
}

func (p GeoPosition) resolve(f geo.Frame) (x, y, lat, lon float64) {
	x, y = f.ToLocal(p.Lat, p.Lon)
	return x, y, p.Lat, p.Lon
}

// SourceSpec is a release point as described by a caller. Rate is nil when
// the release rate is unknown; such sources contribute nothing.
type SourceSpec struct {
	Name      string
	Position  Position
	Height    float64
	Rate      *float64 // g/s, or total g for instantaneous releases
	WindDir   *float64 // per-source bearing override
	WindSpeed *float64 // per-source speed override, m/s
}

// Source is a release point resolved to both coordinate systems.
type Source struct {
	Name      string   `json:"name,omitempty"`
	X0        float64  `json:"x0"`
	Y0        float64  `json:"y0"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Height    float64  `json:"height"`
	Rate      *float64 `json:"rate,omitempty"`
	WindDir   *float64 `json:"wind_dir,omitempty"`
	WindSpeed *float64 `json:"wind_speed,omitempty"`
}

// Resolve fills in the missing coordinate pair using the frame.
func (s SourceSpec) Resolve(f geo.Frame) (Source, error) {
	if s.Position == nil {
		return Source{}, fmt.Errorf("source %q: %w", s.Name, ErrUnresolvedPosition)
	}
	if math.IsNaN(s.Height) || s.Height < 0 {
		return Source{}, fmt.Errorf("source %q: %w: height %v", s.Name, ErrNonPhysical, s.Height)
	}
	x, y, lat, lon := s.Position.resolve(f)
	return Source{
		Name:      s.Name,
		X0:        x,
		Y0:        y,
		Lat:       lat,
		Lon:       lon,
		Height:    s.Height,
		Rate:      s.Rate,
		WindDir:   s.WindDir,
		WindSpeed: s.WindSpeed,
	}, nil
}

// ResolveAll resolves every spec, collecting per-source errors instead of
// stopping at the first.
func ResolveAll(specs []SourceSpec, f geo.Frame) ([]Source, []error) {
	sources := make([]Source, 0, len(specs))
	var errs []error
	for _, spec := range specs {
		src, err := spec.Resolve(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, errs
}
