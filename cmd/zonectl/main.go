// Command zonectl runs the threat-zone engine outside the service: it
// assesses scenario files, prints stability classes, checks the engine's
// physical invariants and writes sample fixtures.
//
// Usage:
//
//	go run ./cmd/zonectl assess -f scenario.json -o zones.geojson
//	go run ./cmd/zonectl stability --lat 31.52 --lon 74.36 --time 2024-06-01T12:00:00+05:00 --wind 2
//	go run ./cmd/zonectl validate
//	go run ./cmd/zonectl genmock -o scenarios.json
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
	"github.com/couchcryptid/threat-zone-service/internal/receptor"
)

var (
	logLevel      string
	receptorsFile string
)

var rootCmd = &cobra.Command{
	Use:          "zonectl",
	Short:        "Assess chemical release scenarios and extract threat zones",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&receptorsFile, "receptors", "", "JSON file of sensitive receptors to report inside zones")

	rootCmd.AddCommand(assessCmd, stabilityCmd, validateCmd, genmockCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return observability.NewTextLogger(os.Stderr, logLevel)
}

// newEngine builds an engine with stock defaults and the optional receptor index.
func newEngine(logger *slog.Logger) (*domain.Engine, error) {
	var finder domain.ReceptorFinder
	if receptorsFile != "" {
		list, err := receptor.LoadFile(receptorsFile)
		if err != nil {
			return nil, err
		}
		finder = receptor.NewIndex(list)
		logger.Info("receptors loaded", "count", len(list))
	}
	return domain.NewEngine(domain.DefaultDefaults(), finder, logger), nil
}

// loadScenarios reads a file holding one scenario object or an array of them.
func loadScenarios(path string) ([]domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '[' {
		s, err := domain.ParseScenario(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []domain.Scenario{s}, nil
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(trimmed, &payloads); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	scenarios := make([]domain.Scenario, 0, len(payloads))
	for i, p := range payloads {
		s, err := domain.ParseScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
