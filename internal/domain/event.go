package domain

import (
	"context"
	"encoding/json"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/geo"
	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Site is the release location. Coordinates may be filled in by geocoding
// when only a name is known.
type Site struct {
	Name   string  `json:"name,omitempty"`
	Region string  `json:"region,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "forward", "reverse", "original", "failed"
}

// HasCoords reports whether the site carries a position.
func (s Site) HasCoords() bool {
	return s.Lat != 0 || s.Lon != 0
}

// Release describes how the chemical escapes and how the plume is modeled.
// Zero values fall back to engine defaults.
type Release struct {
	Mode            string   `json:"mode,omitempty"`   // continuous, puff, instantaneous
	Rate            *float64 `json:"rate,omitempty"`   // g/s, or total g for instantaneous
	Height          float64  `json:"height,omitempty"` // m
	DurationS       float64  `json:"duration_s,omitempty"`
	ElapsedS        float64  `json:"elapsed_s,omitempty"`
	Roughness       string   `json:"roughness,omitempty"` // URBAN or RURAL
	ReceptorHeight  float64  `json:"receptor_height_m,omitempty"`
	ReferenceHeight float64  `json:"reference_height_m,omitempty"`
	ProfileMethod   string   `json:"profile_method,omitempty"` // power_law or monin_obukhov
}

// SourceMessage is one release point. A source is placed by lat/lon when
// both are present, otherwise by x0/y0, otherwise at the site.
type SourceMessage struct {
	Name      string   `json:"name,omitempty"`
	X0        *float64 `json:"x0,omitempty"`
	Y0        *float64 `json:"y0,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
	WindDir   *float64 `json:"wind_dir,omitempty"`
	WindSpeed *float64 `json:"wind_speed,omitempty"`
}

// Scenario is a release to be assessed, as published on the source topic.
type Scenario struct {
	ID              string               `json:"id,omitempty"`
	Chemical        string               `json:"chemical,omitempty"`
	MolecularWeight float64              `json:"molecular_weight,omitempty"`
	ThresholdFamily string               `json:"threshold_family,omitempty"`
	Thresholds      map[string]any       `json:"thresholds,omitempty"` // name -> ppm, number or "30 ppm"
	Site            Site                 `json:"site"`
	ReleasedAt      string               `json:"released_at,omitempty"` // RFC 3339
	TimezoneOffset  *float64             `json:"timezone_offset_hours,omitempty"`
	Weather         *meteo.WeatherState  `json:"weather,omitempty"`
	StabilityClass  string               `json:"stability_class,omitempty"`
	Release         Release              `json:"release"`
	Sources         []SourceMessage      `json:"sources,omitempty"`
	Grid            *dispersion.GridSpec `json:"grid,omitempty"`

	RawPayload []byte `json:"-"`
}

// ZoneReport is one threshold's outcome in an assessment.
type ZoneReport struct {
	Level        string          `json:"level"`
	ThresholdPPM float64         `json:"threshold_ppm,omitempty"`
	Present      bool            `json:"present"`
	Outcome      string          `json:"outcome"` // present, invalid_threshold, above_maximum, no_contour, too_few_points, error
	Reason       string          `json:"reason,omitempty"`
	AreaM2       float64         `json:"area_m2,omitempty"`
	DownwindM    float64         `json:"downwind_extent_m,omitempty"`
	CrosswindM   float64         `json:"crosswind_width_m,omitempty"`
	Geometry     json.RawMessage `json:"geometry,omitempty"` // GeoJSON polygon
	Receptors    []ReceptorHit   `json:"receptors,omitempty"`
}

// ReceptorHit is a sensitive receptor located inside a zone.
type ReceptorHit struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population,omitempty"`
}

// Assessment is the computed threat picture for one scenario.
type Assessment struct {
	ID                  string               `json:"id"`
	ScenarioID          string               `json:"scenario_id,omitempty"`
	Chemical            string               `json:"chemical,omitempty"`
	MolecularWeight     float64              `json:"molecular_weight"`
	Site                Site                 `json:"site"`
	Weather             meteo.WeatherState   `json:"weather"`
	StabilityClass      meteo.StabilityClass `json:"stability_class"`
	StabilityOrigin     string               `json:"stability_origin"` // override, computed, fallback
	WindSpeedAtSource   float64              `json:"wind_speed_at_source"`
	ReleaseMode         string               `json:"release_mode"`
	MaxConcentrationPPM float64              `json:"max_concentration_ppm"`
	Sources             []dispersion.Source  `json:"sources"`
	SourceErrors        []string             `json:"source_errors,omitempty"`
	Zones               []ZoneReport         `json:"zones"`
	ProcessedAt         time.Time            `json:"processed_at"`

	// Computed field and its geometry, kept for in-process callers.
	Field *mat.Dense       `json:"-"`
	Grid  *dispersion.Grid `json:"-"`
	Frame geo.Frame        `json:"-"`
}
