package zone

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"

	"github.com/couchcryptid/threat-zone-service/internal/geo"
)

// Zone is the area at or above one named threshold. Polygon holds a single
// closed ring of (lon, lat) points.
type Zone struct {
	Name      string
	Threshold Threshold
	Polygon   geom.Polygon
}

// Ring returns the outer ring.
func (z *Zone) Ring() []geom.Point {
	if len(z.Polygon) == 0 {
		return nil
	}
	return z.Polygon[0]
}

// Bounds returns the zone's bounding box in degrees.
func (z *Zone) Bounds() *geom.Bounds {
	return z.Polygon.Bounds()
}

// BoundingArea is the area of the bounding box in square degrees.
func (z *Zone) BoundingArea() float64 {
	b := z.Bounds()
	return (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y)
}

// Contains reports whether the point lies inside or on the zone boundary.
func (z *Zone) Contains(lat, lon float64) bool {
	return geom.Point{X: lon, Y: lat}.Within(z.Polygon) != geom.Outside
}

// GeoJSON encodes the polygon as a GeoJSON geometry.
func (z *Zone) GeoJSON() (*geojson.Geometry, error) {
	return geojson.ToGeoJSON(z.Polygon)
}

// Local projects the ring back into the frame's local meters.
func (z *Zone) Local(f geo.Frame) geom.Polygon {
	ring := z.Ring()
	local := make([]geom.Point, len(ring))
	for i, p := range ring {
		x, y := f.ToLocal(p.Y, p.X)
		local[i] = geom.Point{X: x, Y: y}
	}
	return geom.Polygon{local}
}

// Stats are the zone's dimensions in the local frame.
type Stats struct {
	AreaM2          float64 `json:"area_m2"`
	DownwindExtentM float64 `json:"downwind_extent_m"`
	CrosswindWidthM float64 `json:"crosswind_width_m"`
}

// Stats measures the zone in meters relative to the frame origin.
func (z *Zone) Stats(f geo.Frame) Stats {
	local := z.Local(f)
	b := local.Bounds()
	return Stats{
		AreaM2:          math.Abs(local.Area()),
		DownwindExtentM: b.Max.X,
		CrosswindWidthM: b.Max.Y - b.Min.Y,
	}
}
