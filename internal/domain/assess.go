package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ctessum/geom"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/geo"
	"github.com/couchcryptid/threat-zone-service/internal/meteo"
	"github.com/couchcryptid/threat-zone-service/internal/receptor"
	"github.com/couchcryptid/threat-zone-service/internal/zone"
)

// ErrInvalidScenario marks scenarios that cannot be assessed as given.
var ErrInvalidScenario = errors.New("invalid scenario")

// Zone outcomes reported per threshold.
const (
	OutcomePresent          = "present"
	OutcomeInvalidThreshold = "invalid_threshold"
	OutcomeAboveMaximum     = "above_maximum"
	OutcomeNoContour        = "no_contour"
	OutcomeTooFewPoints     = "too_few_points"
	OutcomeError            = "error"
)

// Stability origins.
const (
	StabilityOverride = "override"
	StabilityComputed = "computed"
	StabilityFallback = "fallback"
)

// Defaults fill in whatever a scenario leaves unset.
type Defaults struct {
	Grid            dispersion.GridSpec
	ReceptorHeight  float64 // m
	ReferenceHeight float64 // m, height of the wind measurement
	ReleaseHeight   float64 // m
	Duration        float64 // s
	Elapsed         float64 // s
	Roughness       dispersion.Roughness
	ProfileMethod   meteo.ProfileMethod
}

// DefaultDefaults returns the stock engine defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Grid: dispersion.GridSpec{
			XMin: 10, XMax: 2000,
			YMin: -800, YMax: 800,
			NX: 500, NY: 500,
		},
		ReceptorHeight:  1.5,
		ReferenceHeight: 10,
		ReleaseHeight:   0,
		Duration:        600,
		Elapsed:         600,
		Roughness:       dispersion.Urban,
		ProfileMethod:   meteo.PowerLaw,
	}
}

// ReceptorFinder lists receptors inside a (lon, lat) polygon.
type ReceptorFinder interface {
	Within(poly geom.Polygonal) ([]receptor.Receptor, error)
}

// Engine turns scenarios into assessments. It is safe for concurrent use.
type Engine struct {
	defaults  Defaults
	receptors ReceptorFinder
	logger    *slog.Logger
}

// NewEngine creates an engine. receptors may be nil.
func NewEngine(defaults Defaults, receptors ReceptorFinder, logger *slog.Logger) *Engine {
	return &Engine{defaults: defaults, receptors: receptors, logger: logger}
}

// Defaults returns the engine's defaults.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// Assess computes the concentration field and threat zones for a scenario.
// Errors wrapping ErrInvalidScenario mean the scenario itself is unusable.
// Per-source and per-threshold failures are reported inside the assessment.
func (e *Engine) Assess(s Scenario) (Assessment, error) {
	weather := meteo.DefaultWeather()
	if s.Weather != nil {
		weather = *s.Weather
	}
	if err := weather.Validate(); err != nil {
		return Assessment{}, invalid(err)
	}
	if s.MolecularWeight <= 0 || math.IsNaN(s.MolecularWeight) {
		return Assessment{}, invalid(fmt.Errorf("molecular weight %v", s.MolecularWeight))
	}
	if !s.Site.HasCoords() {
		return Assessment{}, invalid(errors.New("site has no coordinates"))
	}
	if math.Abs(s.Site.Lat) > 90 || math.Abs(s.Site.Lon) > 180 {
		return Assessment{}, invalid(fmt.Errorf("site coordinates (%v, %v) out of range", s.Site.Lat, s.Site.Lon))
	}

	rel, err := e.release(s.Release)
	if err != nil {
		return Assessment{}, invalid(err)
	}

	releasedAt, tz, err := releaseTime(s)
	if err != nil {
		return Assessment{}, invalid(err)
	}

	class, origin, err := e.stability(s, weather, releasedAt, tz)
	if err != nil {
		return Assessment{}, invalid(err)
	}

	// Ground-level releases take the wind at breathing height.
	windHeight := rel.height
	if windHeight <= 0 {
		windHeight = rel.receptorHeight
	}
	u, err := meteo.AdjustWindSpeed(meteo.WindProfile{
		ReferenceHeight: rel.referenceHeight,
		ReferenceSpeed:  weather.WindSpeed,
		RoughnessLength: rel.roughness.Length(),
		Class:           class,
		Method:          rel.method,
	}, windHeight)
	if err != nil {
		return Assessment{}, invalid(err)
	}

	frame := geo.Frame{OriginLat: s.Site.Lat, OriginLon: s.Site.Lon, RotationDeg: weather.WindDir}

	sources, sourceErrs := dispersion.ResolveAll(sourceSpecs(s, rel), frame)
	var sourceErrors []string
	for _, err := range sourceErrs {
		e.logger.Warn("source skipped", "scenario_id", s.ID, "error", err)
		sourceErrors = append(sourceErrors, err.Error())
	}

	spec := e.defaults.Grid
	if s.Grid != nil {
		spec = *s.Grid
	}
	base, err := spec.Build()
	if err != nil {
		return Assessment{}, invalid(err)
	}
	grid := base.Aligned(weather.WindDir)

	field, err := dispersion.Superpose(sources, grid, dispersion.SuperposeParams{
		ReceptorHeight: rel.receptorHeight,
		Elapsed:        rel.elapsed,
		Duration:       rel.duration,
		WindSpeed:      u,
		Class:          class,
		Roughness:      rel.roughness,
		Mode:           rel.mode,
	})
	if err != nil {
		return Assessment{}, invalid(err)
	}

	ppm, err := dispersion.ToPPM(field, s.MolecularWeight, weather.TemperatureK)
	if err != nil {
		return Assessment{}, invalid(err)
	}

	set := zone.Extract(grid, ppm, frame, OrderedLevels(s.Thresholds))
	reports := make([]ZoneReport, 0, len(set))
	for _, res := range set {
		reports = append(reports, e.report(s, res, frame))
	}

	return Assessment{
		ID:                  generateID(s),
		ScenarioID:          s.ID,
		Chemical:            s.Chemical,
		MolecularWeight:     s.MolecularWeight,
		Site:                s.Site,
		Weather:             weather,
		StabilityClass:      class,
		StabilityOrigin:     origin,
		WindSpeedAtSource:   u,
		ReleaseMode:         string(rel.mode),
		MaxConcentrationPPM: dispersion.Max(ppm),
		Sources:             sources,
		SourceErrors:        sourceErrors,
		Zones:               reports,
		ProcessedAt:         clock.Now().UTC(),
		Field:               ppm,
		Grid:                grid,
		Frame:               frame,
	}, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
}

// resolvedRelease is a Release with defaults applied and enums parsed.
type resolvedRelease struct {
	mode            dispersion.ReleaseMode
	rate            *float64
	height          float64
	duration        float64
	elapsed         float64
	roughness       dispersion.Roughness
	receptorHeight  float64
	referenceHeight float64
	method          meteo.ProfileMethod
}

func (e *Engine) release(r Release) (resolvedRelease, error) {
	d := e.defaults
	out := resolvedRelease{
		rate:            r.Rate,
		height:          orDefault(r.Height, d.ReleaseHeight),
		duration:        orDefault(r.DurationS, d.Duration),
		elapsed:         orDefault(r.ElapsedS, d.Elapsed),
		receptorHeight:  orDefault(r.ReceptorHeight, d.ReceptorHeight),
		referenceHeight: orDefault(r.ReferenceHeight, d.ReferenceHeight),
		roughness:       d.Roughness,
		method:          d.ProfileMethod,
	}

	mode, err := dispersion.ParseReleaseMode(r.Mode)
	if err != nil {
		return out, err
	}
	out.mode = mode

	if r.Roughness != "" {
		if out.roughness, err = dispersion.ParseRoughness(r.Roughness); err != nil {
			return out, err
		}
	}
	if r.ProfileMethod != "" {
		if out.method, err = meteo.ParseProfileMethod(r.ProfileMethod); err != nil {
			return out, err
		}
	}

	switch {
	case out.height < 0:
		return out, fmt.Errorf("release height %v", out.height)
	case out.receptorHeight < 0:
		return out, fmt.Errorf("receptor height %v", out.receptorHeight)
	case out.duration <= 0 && mode == dispersion.Puff:
		return out, fmt.Errorf("puff duration %v", out.duration)
	case out.elapsed < 0:
		return out, fmt.Errorf("elapsed time %v", out.elapsed)
	}
	return out, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// releaseTime parses the release instant and the local clock offset. The
// offset comes from the scenario when given, otherwise from the timestamp.
// The returned time reads as local wall clock in that offset.
func releaseTime(s Scenario) (time.Time, float64, error) {
	t := clock.Now().UTC()
	if s.ReleasedAt != "" {
		parsed, err := time.Parse(time.RFC3339, s.ReleasedAt)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("parse released_at: %w", err)
		}
		t = parsed
	}
	if s.TimezoneOffset != nil {
		offset := *s.TimezoneOffset
		return t.In(time.FixedZone("", int(math.Round(offset*3600)))), offset, nil
	}
	_, offset := t.Zone()
	return t, float64(offset) / 3600, nil
}

func (e *Engine) stability(s Scenario, w meteo.WeatherState, t time.Time, tz float64) (meteo.StabilityClass, string, error) {
	if s.StabilityClass != "" {
		c, err := meteo.ParseStabilityClass(s.StabilityClass)
		if err != nil {
			return 0, "", err
		}
		return c, StabilityOverride, nil
	}

	c, err := meteo.ClassifyOrNeutral(w.WindSpeed, t, s.Site.Lat, s.Site.Lon, w.Cloudiness(), tz)
	if err != nil {
		e.logger.Warn("stability classification failed, using neutral",
			"scenario_id", s.ID,
			"error", err,
		)
		return c, StabilityFallback, nil
	}
	return c, StabilityComputed, nil
}

// sourceSpecs converts message sources, applying release defaults. A
// scenario without sources releases from the site itself.
func sourceSpecs(s Scenario, rel resolvedRelease) []dispersion.SourceSpec {
	msgs := s.Sources
	if len(msgs) == 0 {
		msgs = []SourceMessage{{}}
	}

	specs := make([]dispersion.SourceSpec, len(msgs))
	for i, m := range msgs {
		spec := dispersion.SourceSpec{
			Name:      m.Name,
			Height:    rel.height,
			Rate:      rel.rate,
			WindDir:   m.WindDir,
			WindSpeed: m.WindSpeed,
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("Source %d", i+1)
		}
		if m.Height != nil {
			spec.Height = *m.Height
		}
		if m.Rate != nil {
			spec.Rate = m.Rate
		}

		switch {
		case m.Lat != nil && m.Lon != nil:
			spec.Position = dispersion.GeoPosition{Lat: *m.Lat, Lon: *m.Lon}
		case m.X0 != nil && m.Y0 != nil:
			spec.Position = dispersion.LocalPosition{X0: *m.X0, Y0: *m.Y0}
		case m.Lat == nil && m.Lon == nil && m.X0 == nil && m.Y0 == nil:
			spec.Position = dispersion.LocalPosition{}
		}
		specs[i] = spec
	}
	return specs
}

func (e *Engine) report(s Scenario, res zone.Result, f geo.Frame) ZoneReport {
	scenarioID := s.ID
	r := ZoneReport{Level: res.Name, Outcome: outcome(res.Err)}
	if res.Err != nil {
		r.Reason = res.Err.Error()
		if th, err := zone.ParseThreshold(s.Thresholds[res.Name]); err == nil {
			r.ThresholdPPM = float64(th)
		}
		return r
	}

	z := res.Zone
	r.Present = true
	r.ThresholdPPM = float64(z.Threshold)
	st := z.Stats(f)
	r.AreaM2 = st.AreaM2
	r.DownwindM = st.DownwindExtentM
	r.CrosswindM = st.CrosswindWidthM

	if g, err := z.GeoJSON(); err == nil {
		r.Geometry = marshalGeometry(g)
	} else {
		e.logger.Warn("zone geometry encoding failed", "scenario_id", scenarioID, "level", res.Name, "error", err)
	}

	if e.receptors != nil {
		hits, err := e.receptors.Within(z.Polygon)
		if err != nil {
			e.logger.Warn("receptor lookup failed", "scenario_id", scenarioID, "level", res.Name, "error", err)
		}
		for _, h := range hits {
			r.Receptors = append(r.Receptors, ReceptorHit(h))
		}
	}
	return r
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomePresent
	case errors.Is(err, zone.ErrInvalidThreshold):
		return OutcomeInvalidThreshold
	case errors.Is(err, zone.ErrAboveMaximum):
		return OutcomeAboveMaximum
	case errors.Is(err, zone.ErrNoContour):
		return OutcomeNoContour
	case errors.Is(err, zone.ErrTooFewPoints):
		return OutcomeTooFewPoints
	default:
		return OutcomeError
	}
}
