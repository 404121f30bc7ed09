package dispersion

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

// Roughness selects the vertical dispersion table for the terrain.
type Roughness string

const (
	Urban Roughness = "URBAN"
	Rural Roughness = "RURAL"
)

// ParseRoughness accepts URBAN or RURAL in any case. Empty means URBAN.
func ParseRoughness(s string) (Roughness, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "URBAN":
		return Urban, nil
	case "RURAL":
		return Rural, nil
	default:
		return "", fmt.Errorf("unknown roughness %q", s)
	}
}

// Length returns a representative aerodynamic roughness length in meters,
// used by the Monin-Obukhov wind profile.
func (r Roughness) Length() float64 {
	if r == Rural {
		return 0.1
	}
	return 1.0
}

type horizontalCoef struct {
	sx1, sx2, sy1, sy2 float64
}

type verticalCoef struct {
	sz1, sz2, sz3 float64
}

var horizontalTable = map[meteo.StabilityClass]horizontalCoef{
	meteo.ClassA: {0.02, 1.22, 0.22, 0.0001},
	meteo.ClassB: {0.02, 1.22, 0.16, 0.0001},
	meteo.ClassC: {0.02, 1.22, 0.11, 0.0001},
	meteo.ClassD: {0.04, 1.14, 0.08, 0.0001},
	meteo.ClassE: {0.17, 0.97, 0.06, 0.0001},
	meteo.ClassF: {0.17, 0.97, 0.04, 0.0001},
}

var verticalTable = map[Roughness]map[meteo.StabilityClass]verticalCoef{
	Rural: {
		meteo.ClassA: {0.2, 0, 0},
		meteo.ClassB: {0.12, 0, 0},
		meteo.ClassC: {0.08, 0.0002, -0.5},
		meteo.ClassD: {0.06, 0.0015, -0.5},
		meteo.ClassE: {0.03, 0.0003, -1},
		meteo.ClassF: {0.016, 0.0003, -1},
	},
	Urban: {
		meteo.ClassA: {0.24, 0.001, 0.5},
		meteo.ClassB: {0.24, 0.001, 0.5},
		meteo.ClassC: {0.2, 0, 0},
		meteo.ClassD: {0.14, 0.0003, -0.5},
		meteo.ClassE: {0.08, 0.0015, -0.5},
		meteo.ClassF: {0.08, 0.0015, -0.5},
	},
}

// Sigma holds the dispersion coefficients in meters at one downwind distance.
type Sigma struct {
	X, Y, Z float64
}

// SigmaTable resolves the coefficient rows for one class and terrain so a
// grid sweep does not repeat the lookups per cell.
type SigmaTable struct {
	h horizontalCoef
	v verticalCoef
}

// NewSigmaTable looks up the coefficients for the class and terrain.
func NewSigmaTable(class meteo.StabilityClass, roughness Roughness) (SigmaTable, error) {
	h, ok := horizontalTable[class]
	if !ok {
		return SigmaTable{}, fmt.Errorf("sigma table: %w: %v", meteo.ErrInvalidClass, class)
	}
	rows, ok := verticalTable[roughness]
	if !ok {
		return SigmaTable{}, fmt.Errorf("sigma table: unknown roughness %q", roughness)
	}
	return SigmaTable{h: h, v: rows[class]}, nil
}

// At evaluates the coefficients at downwind distance x, floored at epsilon.
func (t SigmaTable) At(x float64) Sigma {
	x = math.Max(x, epsilon)
	return Sigma{
		X: t.h.sx1 * math.Pow(x, t.h.sx2),
		Y: t.h.sy1 * x / math.Sqrt(1+t.h.sy2*x),
		Z: t.v.sz1 * x * math.Pow(1+t.v.sz2*x, t.v.sz3),
	}
}

// Sigmas evaluates the dispersion coefficients for a single distance.
func Sigmas(x float64, class meteo.StabilityClass, roughness Roughness) (Sigma, error) {
	t, err := NewSigmaTable(class, roughness)
	if err != nil {
		return Sigma{}, err
	}
	return t.At(x), nil
}
