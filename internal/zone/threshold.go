package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidThreshold is returned for threshold values that are not positive
// finite numbers.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Threshold is a concentration level in the units of the field it is
// applied to.
type Threshold float64

var unitSuffixes = []string{" ppm", "ppm", " mg/m3", "mg/m3", " mg/l", "mg/l"}

// ParseThreshold accepts a number or a numeric string with an optional unit
// suffix such as "160 ppm".
func ParseThreshold(v any) (Threshold, error) {
	var f float64
	switch t := v.(type) {
	case Threshold:
		f = float64(t)
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidThreshold, t)
		}
		f = parsed
	case string:
		parsed, err := parseThresholdString(t)
		if err != nil {
			return 0, err
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidThreshold)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidThreshold, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, f)
	}
	return Threshold(f), nil
}

func parseThresholdString(s string) (float64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreshold, s)
	}
	return f, nil
}

// Level is a named threshold as supplied by a caller. Value is parsed
// lazily so that one bad level does not reject the whole set.
type Level struct {
	Name  string
	Value any
}
