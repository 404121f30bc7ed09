package dispersion

import (
	"fmt"
	"math"
	"strings"
)

// epsilon floors distances and spreads before they are divided by or
// exponentiated.
const epsilon = 1e-6

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// ReleaseMode selects the temporal form of the release.
type ReleaseMode string

const (
	Continuous    ReleaseMode = "continuous"
	Puff          ReleaseMode = "puff"
	Instantaneous ReleaseMode = "instantaneous"
)

// ParseReleaseMode accepts the mode names used in scenarios. Empty means
// continuous.
func ParseReleaseMode(s string) (ReleaseMode, error) {
	switch ReleaseMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Continuous:
		return Continuous, nil
	case Puff:
		return Puff, nil
	case Instantaneous:
		return Instantaneous, nil
	default:
		return "", fmt.Errorf("unknown release mode %q", s)
	}
}

// KernelParams are the per-source inputs to the plume equations.
type KernelParams struct {
	Rate           float64 // g/s for continuous and puff, total g for instantaneous
	WindSpeed      float64 // m/s
	SourceHeight   float64 // m
	ReceptorHeight float64 // m
	Mode           ReleaseMode
	Duration       float64 // s, puff release duration
	Elapsed        float64 // s since release start, puff only
}

// Crosswind is the normalized Gaussian crosswind term.
func Crosswind(y, sigmaY float64) float64 {
	sigmaY = math.Max(sigmaY, epsilon)
	return math.Exp(-y*y/(2*sigmaY*sigmaY)) / (sqrt2Pi * sigmaY)
}

// Vertical is the normalized vertical term including total reflection from
// the ground via an image source at -h.
func Vertical(z, sigmaZ, h float64) float64 {
	sigmaZ = math.Max(sigmaZ, epsilon)
	s2 := 2 * sigmaZ * sigmaZ
	direct := math.Exp(-(z - h) * (z - h) / s2)
	image := math.Exp(-(z + h) * (z + h) / s2)
	return (direct + image) / (sqrt2Pi * sigmaZ)
}

// Concentration evaluates the kernel at downwind distance x and crosswind
// offset y in g/m³. The caller applies any upwind mask.
func Concentration(x, y float64, s Sigma, p KernelParams) (float64, error) {
	x = math.Max(x, epsilon)
	u := math.Max(p.WindSpeed, epsilon)
	gz := Vertical(p.ReceptorHeight, s.Z, p.SourceHeight)

	switch p.Mode {
	case Continuous, "":
		return p.Rate / u * Crosswind(y, s.Y) * gz, nil

	case Puff:
		steady := p.Rate / u * Crosswind(y, s.Y) * gz
		denom := math.Max(s.X, epsilon) * math.Sqrt2
		t := p.Elapsed
		var window float64
		if t <= p.Duration {
			window = math.Erf(x/denom) - math.Erf((x-u*t)/denom)
		} else {
			window = math.Erf((x-u*(t-p.Duration))/denom) - math.Erf((x-u*t)/denom)
		}
		return steady * window / 2, nil

	case Instantaneous:
		si := math.Max(math.Sqrt2*s.X, epsilon)
		sz := math.Max(s.Z, epsilon)
		norm := p.Rate / (math.Pow(2*math.Pi, 1.5) * si * si * sz)
		return norm * math.Exp(-x*x/(2*si*si)) * Crosswind(y, si) * gz, nil
	}

	return 0, fmt.Errorf("unknown release mode %q", p.Mode)
}
