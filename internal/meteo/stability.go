package meteo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// StabilityClass is a Pasquill-Gifford atmospheric stability category,
// A (very unstable) through F (moderately stable).
type StabilityClass byte

const (
	ClassA StabilityClass = 'A'
	ClassB StabilityClass = 'B'
	ClassC StabilityClass = 'C'
	ClassD StabilityClass = 'D'
	ClassE StabilityClass = 'E'
	ClassF StabilityClass = 'F'
)

// ErrInvalidClass is returned when a stability class string is not A-F.
var ErrInvalidClass = errors.New("invalid stability class")

// ErrInvalidWeather is returned when classifier inputs are out of range.
var ErrInvalidWeather = errors.New("invalid weather input")

// ParseStabilityClass accepts "A".."F" in either case.
func ParseStabilityClass(s string) (StabilityClass, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClass, s)
	}
	c := StabilityClass(s[0])
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClass, s)
	}
	return c, nil
}

// Valid reports whether c is one of A-F.
func (c StabilityClass) Valid() bool {
	return c >= ClassA && c <= ClassF
}

func (c StabilityClass) String() string {
	if !c.Valid() {
		return "?"
	}
	return string(rune(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c StabilityClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClass, c)
	}
	return []byte{byte(c)}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *StabilityClass) UnmarshalText(b []byte) error {
	parsed, err := ParseStabilityClass(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Insolation is the incoming solar radiation category used by the
// daytime stability table.
type Insolation int

const (
	InsolationNone Insolation = iota
	InsolationSlight
	InsolationModerate
	InsolationStrong
)

func (i Insolation) String() string {
	switch i {
	case InsolationStrong:
		return "strong"
	case InsolationModerate:
		return "moderate"
	case InsolationSlight:
		return "slight"
	default:
		return "none"
	}
}

// Flux thresholds in W/m² separating the insolation categories.
const (
	strongFlux   = 851.0
	moderateFlux = 520.0
	slightFlux   = 176.0
)

// Rows: strong, moderate, slight. Columns: wind speed buckets <2, <3, <5, <6, >=6 m/s.
var dayTable = [3][5]StabilityClass{
	{ClassA, ClassB, ClassB, ClassC, ClassC},
	{ClassB, ClassB, ClassC, ClassD, ClassD},
	{ClassB, ClassC, ClassC, ClassD, ClassD},
}

// Rows: cloud cover >= 50%, < 50%.
var nightTable = [2][5]StabilityClass{
	{ClassE, ClassE, ClassD, ClassD, ClassD},
	{ClassF, ClassF, ClassE, ClassD, ClassD},
}

const deg2rad = math.Pi / 180

// SolarInsolation estimates the incoming solar flux (W/m²) at the given
// instant and position, attenuated by cloudiness in tenths (0-10). It also
// returns the sine of the solar elevation angle. tzOffsetHours is the
// offset of t's wall clock east of UTC, so the standard meridian is
// 15·tzOffsetHours degrees.
func SolarInsolation(t time.Time, lat, lon float64, cloudiness int, tzOffsetHours float64) (flux, sinElevation float64) {
	phi := lat * deg2rad
	day := float64(t.YearDay())
	clockHours := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600

	meridian := tzOffsetHours * 15
	solarTime := clockHours + 4*(lon-meridian)/60

	declination := 23.45 * deg2rad * math.Sin(deg2rad*0.986*(day-80))
	hourAngle := deg2rad * 15 * (solarTime - 12)

	sinElevation = math.Sin(declination)*math.Sin(phi) +
		math.Cos(declination)*math.Cos(phi)*math.Cos(hourAngle)

	if sinElevation <= 0.1 {
		return 0, sinElevation
	}
	n := float64(cloudiness)
	flux = 1111 * (1 - 0.0071*n*n) * (sinElevation - 0.1)
	return flux, sinElevation
}

// ClassifyInsolation buckets a solar flux into an insolation category.
func ClassifyInsolation(flux float64) Insolation {
	switch {
	case flux > strongFlux:
		return InsolationStrong
	case flux > moderateFlux:
		return InsolationModerate
	case flux > slightFlux:
		return InsolationSlight
	default:
		return InsolationNone
	}
}

func windColumn(speed float64) int {
	switch {
	case speed < 2:
		return 0
	case speed < 3:
		return 1
	case speed < 5:
		return 2
	case speed < 6:
		return 3
	default:
		return 4
	}
}

// ClassifyTable looks the class up from an insolation category, a 10 m wind
// speed and cloudiness in tenths. InsolationNone selects the night table.
func ClassifyTable(insolation Insolation, windSpeed float64, cloudiness int) StabilityClass {
	col := windColumn(windSpeed)
	switch insolation {
	case InsolationStrong:
		return dayTable[0][col]
	case InsolationModerate:
		return dayTable[1][col]
	case InsolationSlight:
		return dayTable[2][col]
	}
	if cloudiness >= 5 {
		return nightTable[0][col]
	}
	return nightTable[1][col]
}

// Classify determines the Pasquill-Gifford class from the 10 m wind speed,
// the observation time and position, cloudiness in tenths (0-10) and the
// clock's offset from UTC in hours.
func Classify(windSpeed float64, t time.Time, lat, lon float64, cloudiness int, tzOffsetHours float64) (StabilityClass, error) {
	switch {
	case math.IsNaN(windSpeed) || windSpeed < 0:
		return 0, fmt.Errorf("%w: wind speed %v", ErrInvalidWeather, windSpeed)
	case cloudiness < 0 || cloudiness > 10:
		return 0, fmt.Errorf("%w: cloudiness %d outside 0-10", ErrInvalidWeather, cloudiness)
	case math.IsNaN(lat) || lat < -90 || lat > 90:
		return 0, fmt.Errorf("%w: latitude %v", ErrInvalidWeather, lat)
	case math.IsNaN(lon) || lon < -180 || lon > 180:
		return 0, fmt.Errorf("%w: longitude %v", ErrInvalidWeather, lon)
	case t.IsZero():
		return 0, fmt.Errorf("%w: missing observation time", ErrInvalidWeather)
	}

	flux, _ := SolarInsolation(t, lat, lon, cloudiness, tzOffsetHours)
	return ClassifyTable(ClassifyInsolation(flux), windSpeed, cloudiness), nil
}

// ClassifyOrNeutral is Classify with neutral class D substituted on any
// error. The error is still returned so callers can log the fallback.
func ClassifyOrNeutral(windSpeed float64, t time.Time, lat, lon float64, cloudiness int, tzOffsetHours float64) (StabilityClass, error) {
	c, err := Classify(windSpeed, t, lat, lon, cloudiness, tzOffsetHours)
	if err != nil {
		return ClassD, err
	}
	return c, nil
}

// CloudinessTenths converts a 0-1 cloud cover fraction to the 0-10 index
// the tables use, truncating toward zero.
func CloudinessTenths(cover float64) int {
	return int(cover * 10)
}
