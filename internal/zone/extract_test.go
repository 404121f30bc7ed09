package zone

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/geo"
)

var testFrame = geo.Frame{OriginLat: 31.5204, OriginLon: 74.3587, RotationDeg: 45}

// gaussianHill builds a radially symmetric field peaking at 100 over a
// 201 m square grid centered on the origin.
func gaussianHill(t *testing.T) (*dispersion.Grid, *mat.Dense) {
	t.Helper()
	g, err := dispersion.GridSpec{XMin: -100, XMax: 100, YMin: -100, YMax: 100, NX: 41, NY: 41}.Build()
	require.NoError(t, err)

	rows, cols := g.Dims()
	field := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			x, y := g.X.At(i, j), g.Y.At(i, j)
			field.Set(i, j, 100*math.Exp(-(x*x+y*y)/(2*30*30)))
		}
	}
	return g, field
}

func TestContours_SinglePeakIsClosed(t *testing.T) {
	_, field := gaussianHill(t)
	contours := Contours(field, 50)
	require.Len(t, contours, 1)
	assert.True(t, contours[0].Closed())
	assert.Greater(t, len(contours[0]), 8)

	for _, v := range contours[0] {
		assert.InDelta(t, 20, v.Row, 8)
		assert.InDelta(t, 20, v.Col, 8)
	}
}

func TestContours_None(t *testing.T) {
	_, field := gaussianHill(t)
	assert.Empty(t, Contours(field, 1000))
	assert.Empty(t, Contours(mat.NewDense(1, 5, nil), 1))
}

func TestContours_OpenAtBoundary(t *testing.T) {
	// Ramp rising to the right: the iso-line crosses the grid top to bottom.
	field := mat.NewDense(4, 5, []float64{
		0, 1, 2, 3, 4,
		0, 1, 2, 3, 4,
		0, 1, 2, 3, 4,
		0, 1, 2, 3, 4,
	})
	contours := Contours(field, 2.5)
	require.Len(t, contours, 1)
	c := contours[0]
	assert.False(t, c.Closed())
	assert.Len(t, c, 4)
	for _, v := range c {
		assert.InDelta(t, 2.5, v.Col, 1e-12)
	}
}

func TestContours_SaddleDisambiguation(t *testing.T) {
	// Diagonal corners high, center average 5.
	saddle := mat.NewDense(2, 2, []float64{
		10, 0,
		0, 10,
	})

	// Center below level: each high corner is cut off on its own.
	split := Contours(saddle, 6)
	require.Len(t, split, 2)
	assert.Equal(t, Contour{{Row: 0.4, Col: 0}, {Row: 0, Col: 0.4}}, split[0])

	// Center above level: the low corners are cut off instead.
	merged := Contours(saddle, 4)
	require.Len(t, merged, 2)
	assert.Equal(t, Contour{{Row: 0.6, Col: 0}, {Row: 1, Col: 0.4}}, merged[0])
}

func TestContours_Deterministic(t *testing.T) {
	_, field := gaussianHill(t)
	a := Contours(field, 30)
	b := Contours(field, 30)
	assert.Equal(t, a, b)
}

func TestExtract_NestedZones(t *testing.T) {
	g, field := gaussianHill(t)
	set := Extract(g, field, testFrame, []Level{
		{Name: "low", Value: 10},
		{Name: "mid", Value: "50 ppm"},
		{Name: "high", Value: 90.0},
	})
	require.Len(t, set, 3)
	for _, r := range set {
		require.NoError(t, r.Err, r.Name)
		require.NotNil(t, r.Zone, r.Name)
	}

	low, mid, high := set.Get("low"), set.Get("mid"), set.Get("high")
	assert.GreaterOrEqual(t, low.BoundingArea(), mid.BoundingArea())
	assert.GreaterOrEqual(t, mid.BoundingArea(), high.BoundingArea())

	for _, z := range []*Zone{low, mid, high} {
		ring := z.Ring()
		assert.GreaterOrEqual(t, len(ring), minRingPoints)
		assert.Equal(t, ring[0], ring[len(ring)-1])
		assert.True(t, z.Contains(testFrame.OriginLat, testFrame.OriginLon), z.Name)
	}
	assert.InDelta(t, 50.0, float64(mid.Threshold), 1e-12)
}

func TestExtract_Stats(t *testing.T) {
	g, field := gaussianHill(t)
	set := Extract(g, field, testFrame, []Level{{Name: "mid", Value: 50}})
	z := set.Get("mid")
	require.NotNil(t, z)

	// exp(-r²/1800) = 0.5 at r ≈ 35.3 m.
	want := 30 * math.Sqrt(2*math.Ln2)
	s := z.Stats(testFrame)
	assert.InDelta(t, want, s.DownwindExtentM, 2)
	assert.InDelta(t, 2*want, s.CrosswindWidthM, 4)
	assert.InDelta(t, math.Pi*want*want, s.AreaM2, 0.05*math.Pi*want*want)
}

func TestExtract_FailuresAreIsolated(t *testing.T) {
	g, field := gaussianHill(t)
	set := Extract(g, field, testFrame, []Level{
		{Name: "bad", Value: "lots"},
		{Name: "zero", Value: 0},
		{Name: "above", Value: 101},
		{Name: "ok", Value: 20},
	})

	assert.ErrorIs(t, set[0].Err, ErrInvalidThreshold)
	assert.ErrorIs(t, set[1].Err, ErrInvalidThreshold)
	assert.ErrorIs(t, set[2].Err, ErrAboveMaximum)
	require.NoError(t, set[3].Err)
	assert.NotNil(t, set[3].Zone)

	zones := set.Zones()
	assert.Len(t, zones, 4)
	assert.Nil(t, zones["above"])
	assert.NotNil(t, zones["ok"])
}

func TestExtract_TooFewPoints(t *testing.T) {
	g, err := dispersion.GridSpec{XMin: 0, XMax: 10, YMin: 0, YMax: 10, NX: 2, NY: 2}.Build()
	require.NoError(t, err)
	field := mat.NewDense(2, 2, []float64{5, 0, 0, 0})

	set := Extract(g, field, testFrame, []Level{{Name: "corner", Value: 2}})
	assert.ErrorIs(t, set[0].Err, ErrTooFewPoints)
	assert.Nil(t, set[0].Zone)
}

func TestZone_GeoJSON(t *testing.T) {
	g, field := gaussianHill(t)
	z := Extract(g, field, testFrame, []Level{{Name: "mid", Value: 50}}).Get("mid")
	require.NotNil(t, z)

	gj, err := z.GeoJSON()
	require.NoError(t, err)
	assert.Equal(t, "Polygon", gj.Type)
}

func TestBilinear(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 10, 20, 30})
	assert.InDelta(t, 15, bilinear(m, 0.5, 0.5), 1e-12)
	assert.InDelta(t, 30, bilinear(m, 1, 1), 1e-12)
	assert.InDelta(t, 5, bilinear(m, 0, 0.5), 1e-12)
}

func TestZone_ContainsOutside(t *testing.T) {
	z := &Zone{Polygon: geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}}}
	assert.True(t, z.Contains(0.5, 0.5))
	assert.False(t, z.Contains(2, 2))
	assert.InDelta(t, 1.0, z.BoundingArea(), 1e-12)
}
