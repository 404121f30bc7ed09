package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
)

// Assessor computes an assessment for a fully enriched scenario.
type Assessor interface {
	Assess(s domain.Scenario) (domain.Assessment, error)
}

// ScenarioTransformer implements Transformer: it parses a scenario, fills in
// catalog and geocoding data, assesses it and serializes the result.
type ScenarioTransformer struct {
	assessor Assessor
	catalog  domain.ChemicalCatalog
	geocoder domain.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a ScenarioTransformer. Pass a nil catalog or
// geocoder to disable that enrichment.
func NewTransformer(assessor Assessor, catalog domain.ChemicalCatalog, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *ScenarioTransformer {
	return &ScenarioTransformer{
		assessor: assessor,
		catalog:  catalog,
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *ScenarioTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	scenario, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	assessment, err := t.Assess(ctx, scenario)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	return domain.SerializeAssessment(assessment)
}

// Assess enriches and assesses a parsed scenario, recording metrics.
func (t *ScenarioTransformer) Assess(ctx context.Context, scenario domain.Scenario) (domain.Assessment, error) {
	scenario = domain.EnrichWithCatalog(ctx, scenario, t.catalog, t.logger)
	scenario = domain.EnrichWithGeocoding(ctx, scenario, t.geocoder, t.logger)

	start := time.Now()
	assessment, err := t.assessor.Assess(scenario)
	if err != nil {
		return domain.Assessment{}, err
	}
	t.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	t.metrics.StabilityClasses.WithLabelValues(assessment.StabilityClass.String(), assessment.StabilityOrigin).Inc()

	for _, z := range assessment.Zones {
		t.metrics.ZoneOutcomes.WithLabelValues(z.Level, z.Outcome).Inc()
		if !z.Present {
			t.logger.Debug("zone absent",
				"scenario_id", scenario.ID,
				"level", z.Level,
				"reason", z.Reason,
			)
		}
	}

	t.logger.Info("scenario assessed",
		"scenario_id", scenario.ID,
		"assessment_id", assessment.ID,
		"chemical", scenario.Chemical,
		"stability_class", assessment.StabilityClass.String(),
		"max_ppm", assessment.MaxConcentrationPPM,
		"duration", time.Since(start),
	)
	return assessment, nil
}
