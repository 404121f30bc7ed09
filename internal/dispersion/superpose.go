package dispersion

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

// ErrNonPhysical is returned when inputs or results are negative or NaN.
var ErrNonPhysical = errors.New("non-physical value")

// SuperposeParams are the inputs shared by every source in one evaluation.
type SuperposeParams struct {
	ReceptorHeight float64 // m
	Elapsed        float64 // s since release start
	Duration       float64 // s, release duration
	WindSpeed      float64 // m/s, used unless a source overrides it
	Class          meteo.StabilityClass
	Roughness      Roughness
	Mode           ReleaseMode
}

// Superpose evaluates every source over the grid and sums the results into
// a concentration field in g/m³ shaped like the grid. Sources without a
// rate contribute nothing. Sources are evaluated concurrently and summed
// in input order so results are reproducible.
func Superpose(sources []Source, g *Grid, p SuperposeParams) (*mat.Dense, error) {
	table, err := NewSigmaTable(p.Class, p.Roughness)
	if err != nil {
		return nil, err
	}
	if p.Mode == "" {
		p.Mode = Continuous
	}
	if _, err := ParseReleaseMode(string(p.Mode)); err != nil {
		return nil, err
	}

	for _, src := range sources {
		if src.Rate != nil && (math.IsNaN(*src.Rate) || *src.Rate < 0) {
			return nil, fmt.Errorf("source %q: %w: rate %v", src.Name, ErrNonPhysical, *src.Rate)
		}
	}

	rows, cols := g.Dims()
	parts := make([]*mat.Dense, len(sources))

	var eg errgroup.Group
	for i, src := range sources {
		if src.Rate == nil {
			continue
		}
		eg.Go(func() error {
			field, err := contribution(src, g, table, p)
			if err != nil {
				return fmt.Errorf("source %q: %w", src.Name, err)
			}
			parts[i] = field
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	total := mat.NewDense(rows, cols, nil)
	for _, part := range parts {
		if part != nil {
			total.Add(total, part)
		}
	}
	return total, nil
}

// contribution evaluates one source over the whole grid.
func contribution(src Source, g *Grid, table SigmaTable, p SuperposeParams) (*mat.Dense, error) {
	rows, cols := g.Dims()
	out := mat.NewDense(rows, cols, nil)

	u := p.WindSpeed
	if src.WindSpeed != nil {
		u = *src.WindSpeed
	}
	if math.IsNaN(u) || u <= 0 {
		return nil, fmt.Errorf("%w: wind speed %v", ErrNonPhysical, u)
	}
	kp := KernelParams{
		Rate:           *src.Rate,
		WindSpeed:      u,
		SourceHeight:   src.Height,
		ReceptorHeight: p.ReceptorHeight,
		Mode:           p.Mode,
		Duration:       p.Duration,
		Elapsed:        p.Elapsed,
	}

	rotate := g.WindDir != nil && src.WindDir != nil
	var gs, gc, ss, sc float64
	if rotate {
		gs, gc = bearingSincos(*g.WindDir)
		ss, sc = bearingSincos(*src.WindDir)
	}

	for i := range rows {
		for j := range cols {
			x := g.X.At(i, j) - src.X0
			y := g.Y.At(i, j) - src.Y0
			if rotate {
				east := x*gc - y*gs
				north := x*gs + y*gc
				x = east*sc + north*ss
				y = -east*ss + north*sc
			}

			var xs float64
			if p.Mode == Instantaneous {
				xs = math.Max(math.Abs(x), epsilon)
			} else {
				if x <= 0 {
					continue
				}
				xs = math.Max(x, epsilon)
			}

			c, err := Concentration(xs, y, table.At(xs), kp)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(c) || c < 0 {
				return nil, fmt.Errorf("%w: concentration %v at (%v, %v)", ErrNonPhysical, c, x, y)
			}
			out.Set(i, j, c)
		}
	}
	return out, nil
}

func bearingSincos(deg float64) (sin, cos float64) {
	return math.Sincos(math.Mod(90-deg, 360) * math.Pi / 180)
}
