package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
)

var (
	assessInput  string
	assessOutput string
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess scenarios and write threat zones as GeoJSON",
	Long: `Runs every scenario in the input file through the engine and writes a
GeoJSON FeatureCollection with one polygon per present zone and one point
per release source.`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&assessInput, "file", "f", "", "Scenario JSON file (object or array)")
	assessCmd.Flags().StringVarP(&assessOutput, "out", "o", "-", "Output path, - for stdout")
	_ = assessCmd.MarkFlagRequired("file")
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

func runAssess(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	scenarios, err := loadScenarios(assessInput)
	if err != nil {
		return err
	}
	engine, err := newEngine(logger)
	if err != nil {
		return err
	}

	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	for _, s := range scenarios {
		a, err := engine.Assess(s)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.ID, err)
		}
		features, err := assessmentFeatures(a)
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, features...)
		printSummary(cmd.ErrOrStderr(), a)
	}

	out := cmd.OutOrStdout()
	if assessOutput != "-" {
		f, err := os.Create(assessOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// assessmentFeatures flattens one assessment into zone polygons and source points.
func assessmentFeatures(a domain.Assessment) ([]feature, error) {
	var features []feature
	for _, z := range a.Zones {
		if !z.Present {
			continue
		}
		receptors := make([]string, len(z.Receptors))
		for i, r := range z.Receptors {
			receptors[i] = r.Name
		}
		features = append(features, feature{
			Type:     "Feature",
			Geometry: z.Geometry,
			Properties: map[string]any{
				"kind":              "zone",
				"scenario_id":       a.ScenarioID,
				"assessment_id":     a.ID,
				"chemical":          a.Chemical,
				"level":             z.Level,
				"threshold_ppm":     z.ThresholdPPM,
				"area_m2":           z.AreaM2,
				"downwind_extent_m": z.DownwindM,
				"crosswind_width_m": z.CrosswindM,
				"receptors":         receptors,
			},
		})
	}

	for _, src := range a.Sources {
		g, err := geojson.ToGeoJSON(geom.Point{X: src.Lon, Y: src.Lat})
		if err != nil {
			return nil, fmt.Errorf("encode source %q: %w", src.Name, err)
		}
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("encode source %q: %w", src.Name, err)
		}
		features = append(features, feature{
			Type:     "Feature",
			Geometry: raw,
			Properties: map[string]any{
				"kind":        "source",
				"scenario_id": a.ScenarioID,
				"name":        src.Name,
				"height_m":    src.Height,
			},
		})
	}
	return features, nil
}

func printSummary(w io.Writer, a domain.Assessment) {
	fmt.Fprintf(w, "%s (%s): class %s [%s], u=%.2f m/s, max %.1f ppm\n",
		a.ScenarioID, a.Chemical, a.StabilityClass, a.StabilityOrigin, a.WindSpeedAtSource, a.MaxConcentrationPPM)
	for _, z := range a.Zones {
		if z.Present {
			fmt.Fprintf(w, "  %-8s %8.2f ppm  %7.0f m downwind  %7.0f m wide  %d receptors\n",
				z.Level, z.ThresholdPPM, z.DownwindM, z.CrosswindM, len(z.Receptors))
			continue
		}
		fmt.Fprintf(w, "  %-8s %8.2f ppm  absent: %s\n", z.Level, z.ThresholdPPM, z.Reason)
	}
	for _, e := range a.SourceErrors {
		fmt.Fprintf(w, "  source skipped: %s\n", e)
	}
}
