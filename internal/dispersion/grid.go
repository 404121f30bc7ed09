package dispersion

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidGrid is returned for degenerate grid specifications.
var ErrInvalidGrid = errors.New("invalid grid")

// Grid is a rectangular set of evaluation points in the local wind-aligned
// frame. X and Y are meshgrids of identical shape: row i holds ys[i], column
// j holds xs[j]. WindDir, when set, is the bearing the grid's +x axis was
// aligned to, which enables per-source wind direction overrides.
type Grid struct {
	X, Y    *mat.Dense
	WindDir *float64
}

// GridSpec describes a regular grid by its extents and cell counts.
type GridSpec struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
	NX   int     `json:"nx"`
	NY   int     `json:"ny"`
}

// Validate rejects empty or inverted extents.
func (s GridSpec) Validate() error {
	switch {
	case s.NX < 2 || s.NY < 2:
		return fmt.Errorf("%w: need at least 2x2 points, got %dx%d", ErrInvalidGrid, s.NX, s.NY)
	case s.XMax <= s.XMin:
		return fmt.Errorf("%w: x range [%v, %v]", ErrInvalidGrid, s.XMin, s.XMax)
	case s.YMax <= s.YMin:
		return fmt.Errorf("%w: y range [%v, %v]", ErrInvalidGrid, s.YMin, s.YMax)
	}
	return nil
}

// Build evaluates the spec into a Grid.
func (s GridSpec) Build() (*Grid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return NewGrid(Linspace(s.XMin, s.XMax, s.NX), Linspace(s.YMin, s.YMax, s.NY))
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// NewGrid builds the meshgrid of xs (columns) and ys (rows).
func NewGrid(xs, ys []float64) (*Grid, error) {
	if len(xs) == 0 || len(ys) == 0 {
		return nil, fmt.Errorf("%w: empty axis", ErrInvalidGrid)
	}
	rows, cols := len(ys), len(xs)
	X := mat.NewDense(rows, cols, nil)
	Y := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			X.Set(i, j, xs[j])
			Y.Set(i, j, ys[i])
		}
	}
	return &Grid{X: X, Y: Y}, nil
}

// Aligned returns a copy of g marked as aligned to the given bearing.
func (g *Grid) Aligned(windDir float64) *Grid {
	return &Grid{X: g.X, Y: g.Y, WindDir: &windDir}
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	return g.X.Dims()
}

// Column returns the index of the grid column whose x is closest to x.
func (g *Grid) Column(x float64) int {
	_, cols := g.Dims()
	best, bestDist := 0, -1.0
	for j := range cols {
		d := g.X.At(0, j) - x
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// Row returns the index of the grid row whose y is closest to y.
func (g *Grid) Row(y float64) int {
	rows, _ := g.Dims()
	best, bestDist := 0, -1.0
	for i := range rows {
		d := g.Y.At(i, 0) - y
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
