package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

var genmockOutput string

var genmockCmd = &cobra.Command{
	Use:   "genmock",
	Short: "Write sample release scenarios as a JSON array",
	RunE:  runGenmock,
}

func init() {
	genmockCmd.Flags().StringVarP(&genmockOutput, "out", "o", "-", "Output path, - for stdout")
}

func runGenmock(cmd *cobra.Command, _ []string) error {
	data, err := json.MarshalIndent(sampleScenarios(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode scenarios: %w", err)
	}
	data = append(data, '\n')

	if genmockOutput == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(genmockOutput, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", genmockOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d scenarios to %s\n", len(sampleScenarios()), genmockOutput)
	return nil
}

func f64(v float64) *float64 { return &v }

// sampleGrid is coarse enough for quick runs while still resolving zones.
func sampleGrid(xMax, halfWidth float64) *dispersion.GridSpec {
	return &dispersion.GridSpec{XMin: 10, XMax: xMax, YMin: -halfWidth, YMax: halfWidth, NX: 200, NY: 160}
}

// sampleScenarios covers each release mode, computed and overridden
// stability, multiple sources and both roughness classes.
func sampleScenarios() []domain.Scenario {
	return []domain.Scenario{
		{
			ID:              "mock-ammonia-tank",
			Chemical:        "ammonia",
			MolecularWeight: 17.03,
			Thresholds:      map[string]any{"AEGL-1": "30 ppm", "AEGL-2": "160 ppm", "AEGL-3": "1100 ppm"},
			Site:            domain.Site{Name: "Ravi Chemical Works", Lat: 31.5204, Lon: 74.3587},
			ReleasedAt:      "2024-06-01T10:00:00+05:00",
			Weather:         &meteo.WeatherState{WindSpeed: 5, WindDir: 45, TemperatureK: 298.15, Humidity: 0.5, CloudCover: 0.5},
			StabilityClass:  "D",
			Release:         domain.Release{Mode: "continuous", Rate: f64(1000), Height: 3, Roughness: "URBAN"},
			Grid:            sampleGrid(2000, 800),
		},
		{
			ID:              "mock-chlorine-railcar",
			Chemical:        "chlorine",
			MolecularWeight: 70.9,
			Thresholds:      map[string]any{"AEGL-1": 0.5, "AEGL-2": 2, "AEGL-3": 20},
			Site:            domain.Site{Name: "Shahdara Rail Yard", Lat: 31.634, Lon: 74.287},
			ReleasedAt:      "2024-01-15T23:30:00+05:00",
			Weather:         &meteo.WeatherState{WindSpeed: 2, WindDir: 300, TemperatureK: 281.15, Humidity: 0.8, CloudCover: 0.1},
			Release:         domain.Release{Mode: "continuous", Rate: f64(500), Roughness: "RURAL"},
			Grid:            sampleGrid(3000, 1000),
		},
		{
			ID:              "mock-sulfur-dioxide-stacks",
			Chemical:        "sulfur dioxide",
			MolecularWeight: 64.07,
			Thresholds:      map[string]any{"ERPG-2": "3 ppm", "ERPG-3": "15 ppm"},
			Site:            domain.Site{Name: "Kot Lakhpat Smelter", Lat: 31.452, Lon: 74.331},
			ReleasedAt:      "2024-06-01T13:00:00+05:00",
			Weather:         &meteo.WeatherState{WindSpeed: 4, WindDir: 180, TemperatureK: 305.15, Humidity: 0.4, CloudCover: 0.3},
			Release:         domain.Release{Mode: "continuous", Rate: f64(200), Height: 10},
			Sources: []domain.SourceMessage{
				{Name: "Stack A", X0: f64(0), Y0: f64(0)},
				{Name: "Stack B", X0: f64(50), Y0: f64(-40), Rate: f64(400), Height: f64(20)},
			},
			Grid: sampleGrid(2000, 800),
		},
		{
			ID:              "mock-hydrogen-sulfide-puff",
			Chemical:        "hydrogen sulfide",
			MolecularWeight: 34.08,
			Thresholds:      map[string]any{"AEGL-2": "27 ppm", "AEGL-3": "50 ppm"},
			Site:            domain.Site{Name: "Sundar Wastewater Plant", Lat: 31.33, Lon: 74.19},
			ReleasedAt:      "2024-03-10T08:00:00+05:00",
			Weather:         &meteo.WeatherState{WindSpeed: 3, WindDir: 90, TemperatureK: 293.15, Humidity: 0.6, CloudCover: 0.5},
			StabilityClass:  "C",
			Release:         domain.Release{Mode: "puff", Rate: f64(500), Height: 1, DurationS: 600, ElapsedS: 300},
			Grid:            sampleGrid(2000, 800),
		},
		{
			ID:              "mock-phosgene-cylinder",
			Chemical:        "phosgene",
			MolecularWeight: 98.92,
			Thresholds:      map[string]any{"AEGL-2": "0.3 ppm", "AEGL-3": "0.75 ppm"},
			Site:            domain.Site{Name: "Quaid-e-Azam Industrial Estate", Lat: 31.468, Lon: 74.395},
			ReleasedAt:      "2024-06-01T14:00:00+05:00",
			Weather:         &meteo.WeatherState{WindSpeed: 6, WindDir: 250, TemperatureK: 308.15, Humidity: 0.3, CloudCover: 0.2},
			StabilityClass:  "C",
			Release:         domain.Release{Mode: "instantaneous", Rate: f64(20000), Height: 1, ElapsedS: 120},
			Grid:            sampleGrid(2000, 800),
		},
	}
}
