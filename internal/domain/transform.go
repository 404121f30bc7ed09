package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom/encoding/geojson"
)

// ParseRawEvent deserializes a RawEvent's value into a Scenario. Numbers in
// the thresholds map are kept as json.Number so unit strings and plain
// numbers parse the same way later. The message key is used as the
// scenario ID when the payload carries none. Undecodable payloads wrap
// [ErrInvalidScenario].
func ParseRawEvent(raw RawEvent) (Scenario, error) {
	s, err := ParseScenario(raw.Value)
	if err != nil {
		return Scenario{}, invalid(err)
	}
	if s.ID == "" && len(raw.Key) > 0 {
		s.ID = string(raw.Key)
	}
	return s, nil
}

// ParseScenario decodes and normalizes a scenario payload.
func ParseScenario(data []byte) (Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}

	s.ID = strings.TrimSpace(s.ID)
	s.Chemical = strings.TrimSpace(s.Chemical)
	s.ThresholdFamily = strings.ToUpper(strings.TrimSpace(s.ThresholdFamily))
	s.StabilityClass = strings.ToUpper(strings.TrimSpace(s.StabilityClass))
	s.Site.Name = strings.TrimSpace(s.Site.Name)
	s.Site.Region = strings.TrimSpace(s.Site.Region)
	s.Release.Mode = strings.ToLower(strings.TrimSpace(s.Release.Mode))
	s.Release.Roughness = strings.ToUpper(strings.TrimSpace(s.Release.Roughness))
	s.RawPayload = data
	return s, nil
}

// generateID produces a deterministic assessment ID from the scenario's
// identity and payload. Reprocessing the same message yields the same ID.
func generateID(s Scenario) string {
	payload := sha256.Sum256(s.RawPayload)
	input := fmt.Sprintf("%s|%s|%.4f|%.4f|%s|%x", s.ID, s.Chemical, s.Site.Lat, s.Site.Lon, s.ReleasedAt, payload[:8])
	hash := sha256.Sum256([]byte(input))
	return "tz-" + hex.EncodeToString(hash[:8])
}

// SerializeAssessment encodes an assessment for the sink topic. The key is
// the scenario ID so all assessments of one scenario share a partition.
func SerializeAssessment(a Assessment) (OutputEvent, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize assessment: %w", err)
	}

	key := a.ScenarioID
	if key == "" {
		key = a.ID
	}

	present := 0
	for _, z := range a.Zones {
		if z.Present {
			present++
		}
	}

	return OutputEvent{
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"assessment_id":   a.ID,
			"chemical":        a.Chemical,
			"stability_class": a.StabilityClass.String(),
			"zones_present":   strconv.Itoa(present),
			"processed_at":    a.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

func marshalGeometry(g *geojson.Geometry) json.RawMessage {
	data, err := json.Marshal(g)
	if err != nil {
		return nil
	}
	return data
}
