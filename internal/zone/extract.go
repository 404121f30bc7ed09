package zone

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/ctessum/geom"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/geo"
)

// Reasons a level produces no zone.
var (
	ErrAboveMaximum = errors.New("threshold above field maximum")
	ErrNoContour    = errors.New("no contour at threshold")
	ErrTooFewPoints = errors.New("contour has too few points")
)

const minRingPoints = 4

// Result is the outcome for one named level. Zone is nil when Err is set.
type Result struct {
	Name string
	Zone *Zone
	Err  error
}

// Set holds one Result per requested level, in request order.
type Set []Result

// Get returns the zone for name, or nil if it is absent.
func (s Set) Get(name string) *Zone {
	for _, r := range s {
		if r.Name == name {
			return r.Zone
		}
	}
	return nil
}

// Zones returns the zones keyed by name. Absent zones map to nil.
func (s Set) Zones() map[string]*Zone {
	out := make(map[string]*Zone, len(s))
	for _, r := range s {
		out[r.Name] = r.Zone
	}
	return out
}

// Extract finds one zone polygon per level over the field. The field must
// have the grid's shape and be in the same units as the thresholds. Each
// level is handled independently: a failure yields a Result with Err set
// and does not affect the other levels.
func Extract(g *dispersion.Grid, field mat.Matrix, f geo.Frame, levels []Level) Set {
	lat, lon := f.GridToLatLon(g.X, g.Y)
	maxValue := mat.Max(field)

	out := make(Set, len(levels))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, lvl := range levels {
		eg.Go(func() error {
			z, err := extractLevel(lvl, field, lat, lon, maxValue)
			out[i] = Result{Name: lvl.Name, Zone: z, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func extractLevel(lvl Level, field, lat, lon mat.Matrix, maxValue float64) (z *Zone, err error) {
	defer func() {
		if r := recover(); r != nil {
			z, err = nil, fmt.Errorf("extract %s: %v", lvl.Name, r)
		}
	}()

	th, err := ParseThreshold(lvl.Value)
	if err != nil {
		return nil, err
	}
	if float64(th) > maxValue {
		return nil, fmt.Errorf("%w: %v > %v", ErrAboveMaximum, float64(th), maxValue)
	}

	contours := Contours(field, float64(th))
	if len(contours) == 0 {
		return nil, ErrNoContour
	}
	longest := contours[0]
	for _, c := range contours[1:] {
		if len(c) > len(longest) {
			longest = c
		}
	}

	rows, cols := field.Dims()
	ring := make([]geom.Point, 0, len(longest)+1)
	for _, v := range longest {
		if v.Row < 0 || v.Col < 0 || v.Row > float64(rows-1) || v.Col > float64(cols-1) {
			continue
		}
		ring = append(ring, geom.Point{
			X: bilinear(lon, v.Row, v.Col),
			Y: bilinear(lat, v.Row, v.Col),
		})
	}
	if len(ring) < minRingPoints {
		return nil, fmt.Errorf("%w: %d", ErrTooFewPoints, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	return &Zone{Name: lvl.Name, Threshold: th, Polygon: geom.Polygon{ring}}, nil
}

// bilinear samples m at a fractional index.
func bilinear(m mat.Matrix, row, col float64) float64 {
	rows, cols := m.Dims()
	i0, j0 := int(math.Floor(row)), int(math.Floor(col))
	i1, j1 := min(i0+1, rows-1), min(j0+1, cols-1)
	fr, fc := row-float64(i0), col-float64(j0)

	return (1-fr)*(1-fc)*m.At(i0, j0) +
		(1-fr)*fc*m.At(i0, j1) +
		fr*(1-fc)*m.At(i1, j0) +
		fr*fc*m.At(i1, j1)
}
