package dispersion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// gasConstant is R in L·atm/(mol·K).
const gasConstant = 0.08206

// ToPPM converts a field in g/m³ to parts per million by volume for a gas
// of the given molecular weight (g/mol) at temperatureK.
func ToPPM(field mat.Matrix, molecularWeight, temperatureK float64) (*mat.Dense, error) {
	if molecularWeight <= 0 {
		return nil, fmt.Errorf("%w: molecular weight %v", ErrNonPhysical, molecularWeight)
	}
	if temperatureK <= 0 {
		return nil, fmt.Errorf("%w: temperature %v K", ErrNonPhysical, temperatureK)
	}
	factor := gasConstant * temperatureK / molecularWeight * 1000
	var out mat.Dense
	out.Scale(factor, field)
	return &out, nil
}

// Max returns the largest value in the field.
func Max(field mat.Matrix) float64 {
	return mat.Max(field)
}
