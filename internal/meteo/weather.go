package meteo

import (
	"fmt"
	"math"
)

// WeatherState is a single meteorological observation at the release site.
type WeatherState struct {
	WindSpeed    float64 `json:"wind_speed"`    // m/s at the reference height
	WindDir      float64 `json:"wind_dir"`      // degrees, meteorological bearing the wind blows from
	TemperatureK float64 `json:"temperature_k"` // kelvin
	Humidity     float64 `json:"humidity"`      // 0-1
	CloudCover   float64 `json:"cloud_cover"`   // 0-1
}

// DefaultWeather is the snapshot used when no observation is supplied.
func DefaultWeather() WeatherState {
	return WeatherState{
		WindSpeed:    5.0,
		WindDir:      270.0,
		TemperatureK: 298.15,
		Humidity:     0.5,
		CloudCover:   0.5,
	}
}

// Validate checks each field against physically plausible ranges.
func (w WeatherState) Validate() error {
	switch {
	case math.IsNaN(w.WindSpeed) || w.WindSpeed < 0 || w.WindSpeed > 100:
		return fmt.Errorf("%w: wind speed %v m/s", ErrInvalidWeather, w.WindSpeed)
	case math.IsNaN(w.WindDir) || math.IsInf(w.WindDir, 0):
		return fmt.Errorf("%w: wind direction %v", ErrInvalidWeather, w.WindDir)
	case math.IsNaN(w.TemperatureK) || w.TemperatureK < 173 || w.TemperatureK > 373:
		return fmt.Errorf("%w: temperature %v K", ErrInvalidWeather, w.TemperatureK)
	case math.IsNaN(w.Humidity) || w.Humidity < 0 || w.Humidity > 1:
		return fmt.Errorf("%w: humidity %v", ErrInvalidWeather, w.Humidity)
	case math.IsNaN(w.CloudCover) || w.CloudCover < 0 || w.CloudCover > 1:
		return fmt.Errorf("%w: cloud cover %v", ErrInvalidWeather, w.CloudCover)
	}
	return nil
}

// Cloudiness returns the cloud cover in tenths.
func (w WeatherState) Cloudiness() int {
	return CloudinessTenths(w.CloudCover)
}
