package meteo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidDomain is returned when wind profile inputs fall outside the
// domain where the profile laws are defined.
var ErrInvalidDomain = errors.New("invalid wind profile domain")

// ProfileMethod selects the vertical wind profile law.
type ProfileMethod string

const (
	PowerLaw     ProfileMethod = "power_law"
	MoninObukhov ProfileMethod = "monin_obukhov"
)

const (
	vonKarman         = 0.4
	calmWindSpeed     = 0.5
	referenceFriction = 0.03
)

// ParseProfileMethod accepts the method names used in scenarios and config.
func ParseProfileMethod(s string) (ProfileMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "power_law", "power":
		return PowerLaw, nil
	case "monin_obukhov", "mo", "log":
		return MoninObukhov, nil
	default:
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidDomain, s)
	}
}

var exponents = map[StabilityClass]float64{
	ClassA: 0.108,
	ClassB: 0.112,
	ClassC: 0.120,
	ClassD: 0.142,
	ClassE: 0.203,
	ClassF: 0.253,
}

// StabilityExponent returns the power-law exponent for the class.
func StabilityExponent(c StabilityClass) (float64, error) {
	n, ok := exponents[c]
	if !ok {
		return 0, fmt.Errorf("%w: class %v", ErrInvalidDomain, c)
	}
	return n, nil
}

// ObukhovLength estimates the Monin-Obukhov length (m) from the surface
// roughness length z0 and stability class. Neutral conditions give +Inf.
func ObukhovLength(z0 float64, c StabilityClass) (float64, error) {
	if z0 <= 0 || math.IsNaN(z0) {
		return 0, fmt.Errorf("%w: roughness length %v", ErrInvalidDomain, z0)
	}
	switch c {
	case ClassA:
		return -11.4 * math.Pow(z0, 0.10), nil
	case ClassB:
		return -26.0 * math.Pow(z0, 0.17), nil
	case ClassC:
		return -123.0 * math.Pow(z0, 0.30), nil
	case ClassD:
		return math.Inf(1), nil
	case ClassE:
		return 123.0 * math.Pow(z0, 0.30), nil
	case ClassF:
		return 26.0 * math.Pow(z0, 0.17), nil
	}
	return 0, fmt.Errorf("%w: class %v", ErrInvalidDomain, c)
}

// Psi is the integrated stability correction for momentum at ζ = z/L.
// Unstable air uses the Businger-Dyer form, stable air the linear form.
func Psi(zeta float64) float64 {
	switch {
	case zeta < 0:
		x := math.Pow(1-15*zeta, 0.25)
		return 2*math.Log((1+x)/2) + math.Log((1+x*x)/2) - 2*math.Atan(x) + math.Pi/2
	case zeta > 0:
		return -4.7 * zeta
	default:
		return 0
	}
}

// FrictionVelocity approximates u* from a reference wind speed measured at
// referenceHeight, scaled to the 10 m standard with the class exponent.
func FrictionVelocity(referenceSpeed, referenceHeight float64, c StabilityClass) (float64, error) {
	n, err := StabilityExponent(c)
	if err != nil {
		return 0, err
	}
	if referenceHeight <= 0 {
		return 0, fmt.Errorf("%w: reference height %v", ErrInvalidDomain, referenceHeight)
	}
	return referenceFriction * referenceSpeed * math.Pow(10/referenceHeight, n), nil
}

// WindProfile describes a measured wind and the surface it blows over.
type WindProfile struct {
	ReferenceHeight float64 // m
	ReferenceSpeed  float64 // m/s
	RoughnessLength float64 // m, required by MoninObukhov
	Class           StabilityClass
	Method          ProfileMethod
}

// AdjustWindSpeed extrapolates the reference wind to targetHeight. The
// result is floored at a calm-wind minimum so it is always positive.
func AdjustWindSpeed(p WindProfile, targetHeight float64) (float64, error) {
	if targetHeight <= 0 || math.IsNaN(targetHeight) {
		return 0, fmt.Errorf("%w: target height %v", ErrInvalidDomain, targetHeight)
	}
	if p.ReferenceHeight <= 0 || math.IsNaN(p.ReferenceHeight) {
		return 0, fmt.Errorf("%w: reference height %v", ErrInvalidDomain, p.ReferenceHeight)
	}
	if p.ReferenceSpeed < 0 || math.IsNaN(p.ReferenceSpeed) {
		return 0, fmt.Errorf("%w: reference speed %v", ErrInvalidDomain, p.ReferenceSpeed)
	}

	var u float64
	switch p.Method {
	case PowerLaw, "":
		n, err := StabilityExponent(p.Class)
		if err != nil {
			return 0, err
		}
		u = p.ReferenceSpeed * math.Pow(targetHeight/p.ReferenceHeight, n)
	case MoninObukhov:
		L, err := ObukhovLength(p.RoughnessLength, p.Class)
		if err != nil {
			return 0, err
		}
		ustar, err := FrictionVelocity(p.ReferenceSpeed, p.ReferenceHeight, p.Class)
		if err != nil {
			return 0, err
		}
		z0 := p.RoughnessLength
		u = ustar / vonKarman * (math.Log((targetHeight+z0)/z0) - Psi(targetHeight/L))
	default:
		return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidDomain, p.Method)
	}

	if math.IsNaN(u) || u < calmWindSpeed {
		return calmWindSpeed, nil
	}
	return u, nil
}
