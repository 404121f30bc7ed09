// Package geo converts between the local wind-aligned meter frame used by
// the dispersion grid and WGS-84 latitude/longitude.
//
// The conversion is equirectangular: a fixed number of meters per degree of
// latitude, scaled by the cosine of the origin latitude for longitude. It is
// accurate to well under a percent within roughly 100 km of the origin.
package geo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MetersPerDegreeLat is the north-south length of one degree of latitude.
const MetersPerDegreeLat = 111320.0

// Frame anchors the local frame at an origin and rotates it by a
// meteorological bearing.
type Frame struct {
	OriginLat   float64
	OriginLon   float64
	RotationDeg float64
}

func (f Frame) angle() (sin, cos float64) {
	theta := math.Mod(90-f.RotationDeg, 360) * math.Pi / 180
	return math.Sincos(theta)
}

func (f Frame) metersPerDegreeLon() float64 {
	return MetersPerDegreeLat * math.Cos(f.OriginLat*math.Pi/180)
}

// ToLatLon maps local (x, y) meters to latitude and longitude.
func (f Frame) ToLatLon(x, y float64) (lat, lon float64) {
	s, c := f.angle()
	xr := x*c - y*s
	yr := x*s + y*c
	lat = f.OriginLat + yr/MetersPerDegreeLat
	lon = f.OriginLon + xr/f.metersPerDegreeLon()
	return lat, lon
}

// ToLocal is the exact inverse of ToLatLon.
func (f Frame) ToLocal(lat, lon float64) (x, y float64) {
	xr := (lon - f.OriginLon) * f.metersPerDegreeLon()
	yr := (lat - f.OriginLat) * MetersPerDegreeLat
	s, c := f.angle()
	x = xr*c + yr*s
	y = -xr*s + yr*c
	return x, y
}

// GridToLatLon converts meshgrids of local coordinates to matching
// latitude and longitude matrices.
func (f Frame) GridToLatLon(X, Y mat.Matrix) (lat, lon *mat.Dense) {
	rows, cols := X.Dims()
	lat = mat.NewDense(rows, cols, nil)
	lon = mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			la, lo := f.ToLatLon(X.At(i, j), Y.At(i, j))
			lat.Set(i, j, la)
			lon.Set(i, j, lo)
		}
	}
	return lat, lon
}
