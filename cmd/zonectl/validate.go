package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/domain"
)

var validateInput string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check physical invariants of the engine on sample or given scenarios",
	Long: `Assesses each scenario and checks that the centerline concentration
decays downwind of its peak, that stricter zones nest inside laxer ones,
that the local frame round-trips through latitude and longitude, and that
repeated assessments are identical.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "file", "f", "", "Scenario JSON file (default: built-in samples)")
}

// Tolerances for the numeric checks.
const (
	decayTolerance     = 1e-9
	roundTripTolerance = 1e-6 // m
	nestingTolerance   = 1e-6
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runValidate(cmd *cobra.Command, _ []string) error {
	// Fixed clock so assessment IDs are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 5, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	scenarios := sampleScenarios()
	if validateInput != "" {
		var err error
		if scenarios, err = loadScenarios(validateInput); err != nil {
			return err
		}
	}

	engine, err := newEngine(newLogger())
	if err != nil {
		return err
	}

	assessments := make([]domain.Assessment, 0, len(scenarios))
	for _, s := range scenarios {
		a, err := engine.Assess(s)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.ID, err)
		}
		assessments = append(assessments, a)
	}

	phases := []*phase{
		validateCenterlineDecay(assessments),
		validateZoneNesting(assessments),
		validateFrameRoundTrip(assessments),
		validateDeterminism(engine, scenarios, assessments),
	}

	if report(cmd.OutOrStdout(), phases, len(assessments)) {
		return nil
	}
	return errors.New("validation failed")
}

func report(w io.Writer, phases []*phase, n int) bool {
	fmt.Fprintln(w, "=== Threat Zone Engine Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nScenarios: %d\n", n)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
	} else {
		fmt.Fprintln(w, "\nValidation FAILED.")
	}
	return allPassed
}

// validateCenterlineDecay checks single-source continuous plumes: past the
// peak, ground concentration along y=0 never increases.
func validateCenterlineDecay(assessments []domain.Assessment) *phase {
	p := &phase{name: "Centerline decay"}
	for _, a := range assessments {
		if a.ReleaseMode != string(dispersion.Continuous) || len(a.Sources) != 1 {
			continue
		}
		_, cols := a.Field.Dims()
		row := a.Grid.Row(0)

		peak := 0
		for j := range cols {
			if a.Field.At(row, j) > a.Field.At(row, peak) {
				peak = j
			}
		}
		for j := peak + 1; j < cols; j++ {
			prev, cur := a.Field.At(row, j-1), a.Field.At(row, j)
			if cur > prev*(1+decayTolerance) {
				p.errorf("%s: concentration rises from %.4g to %.4g at x=%.0f m",
					a.ScenarioID, prev, cur, a.Grid.X.At(row, j))
				break
			}
		}
	}
	return p
}

// validateZoneNesting checks that a higher threshold never yields a zone
// larger or longer than a lower one.
func validateZoneNesting(assessments []domain.Assessment) *phase {
	p := &phase{name: "Zone nesting"}
	for _, a := range assessments {
		present := make([]domain.ZoneReport, 0, len(a.Zones))
		for _, z := range a.Zones {
			if z.Present {
				present = append(present, z)
			}
		}
		sort.Slice(present, func(i, j int) bool { return present[i].ThresholdPPM < present[j].ThresholdPPM })

		for i := 1; i < len(present); i++ {
			lo, hi := present[i-1], present[i]
			if hi.AreaM2 > lo.AreaM2*(1+nestingTolerance) {
				p.errorf("%s: %s area %.0f m² exceeds %s area %.0f m²", a.ScenarioID, hi.Level, hi.AreaM2, lo.Level, lo.AreaM2)
			}
			if hi.DownwindM > lo.DownwindM*(1+nestingTolerance) {
				p.errorf("%s: %s reaches %.0f m, beyond %s at %.0f m", a.ScenarioID, hi.Level, hi.DownwindM, lo.Level, lo.DownwindM)
			}
		}
	}
	return p
}

// validateFrameRoundTrip projects the grid corners to lat/lon and back.
func validateFrameRoundTrip(assessments []domain.Assessment) *phase {
	p := &phase{name: "Frame round trip"}
	for _, a := range assessments {
		rows, cols := a.Grid.Dims()
		for _, rc := range [][2]int{{0, 0}, {0, cols - 1}, {rows - 1, 0}, {rows - 1, cols - 1}, {rows / 2, cols / 2}} {
			x, y := a.Grid.X.At(rc[0], rc[1]), a.Grid.Y.At(rc[0], rc[1])
			lat, lon := a.Frame.ToLatLon(x, y)
			bx, by := a.Frame.ToLocal(lat, lon)
			if d := math.Hypot(bx-x, by-y); d > roundTripTolerance {
				p.errorf("%s: (%.1f, %.1f) returns %.3g m away", a.ScenarioID, x, y, d)
			}
		}
	}
	return p
}

// validateDeterminism re-assesses every scenario and compares the result.
func validateDeterminism(engine *domain.Engine, scenarios []domain.Scenario, first []domain.Assessment) *phase {
	p := &phase{name: "Deterministic output"}
	for i, s := range scenarios {
		again, err := engine.Assess(s)
		if err != nil {
			p.errorf("%s: second assessment failed: %v", s.ID, err)
			continue
		}
		if again.ID != first[i].ID {
			p.errorf("%s: id changed from %s to %s", s.ID, first[i].ID, again.ID)
		}
		if again.MaxConcentrationPPM != first[i].MaxConcentrationPPM {
			p.errorf("%s: max concentration changed from %g to %g", s.ID, first[i].MaxConcentrationPPM, again.MaxConcentrationPPM)
		}
		if len(again.Zones) != len(first[i].Zones) {
			p.errorf("%s: zone count changed", s.ID)
		}
	}
	return p
}
