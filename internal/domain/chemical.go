package domain

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/couchcryptid/threat-zone-service/internal/zone"
)

// ErrChemicalNotFound is returned by catalogs for unknown chemicals.
var ErrChemicalNotFound = errors.New("chemical not found")

// Chemical carries the properties needed to convert and threshold a field.
// Threshold values are kept as published, e.g. "30 ppm".
type Chemical struct {
	Name            string
	MolecularWeight float64
	Thresholds      map[string]string
}

// ChemicalCatalog looks up chemical properties by name.
type ChemicalCatalog interface {
	LookupChemical(ctx context.Context, name string) (Chemical, error)
}

// levelOrder ranks the known hazard levels from least to most severe within
// each family.
var levelOrder = []string{
	"AEGL-1", "AEGL-2", "AEGL-3",
	"ERPG-1", "ERPG-2", "ERPG-3",
	"PAC-1", "PAC-2", "PAC-3",
	"IDLH",
}

var families = map[string][]string{
	"AEGL": {"AEGL-1", "AEGL-2", "AEGL-3"},
	"ERPG": {"ERPG-1", "ERPG-2", "ERPG-3"},
	"PAC":  {"PAC-1", "PAC-2", "PAC-3"},
	"IDLH": {"IDLH"},
}

// DefaultThresholdFamily is used when a scenario does not name one.
const DefaultThresholdFamily = "AEGL"

// FamilyThresholds selects one family's thresholds from a chemical. "ALL"
// selects every published level.
func (c Chemical) FamilyThresholds(family string) map[string]any {
	family = strings.ToUpper(strings.TrimSpace(family))
	if family == "" {
		family = DefaultThresholdFamily
	}
	out := make(map[string]any)
	if family == "ALL" {
		for name, v := range c.Thresholds {
			out[name] = v
		}
		return out
	}
	for _, name := range families[family] {
		if v, ok := c.Thresholds[name]; ok && v != "" {
			out[name] = v
		}
	}
	return out
}

// OrderedLevels turns a threshold map into levels sorted by hazard order,
// with unknown names last in lexical order.
func OrderedLevels(thresholds map[string]any) []zone.Level {
	rank := func(name string) int {
		for i, known := range levelOrder {
			if strings.EqualFold(known, name) {
				return i
			}
		}
		return len(levelOrder)
	}

	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	levels := make([]zone.Level, len(names))
	for i, name := range names {
		levels[i] = zone.Level{Name: name, Value: thresholds[name]}
	}
	return levels
}

// EnrichWithCatalog fills a scenario's molecular weight and thresholds from
// the catalog when the scenario does not carry them. Lookup failures are
// logged and leave the scenario unchanged.
func EnrichWithCatalog(ctx context.Context, s Scenario, catalog ChemicalCatalog, logger *slog.Logger) Scenario {
	if catalog == nil || s.Chemical == "" {
		return s
	}
	if s.MolecularWeight > 0 && len(s.Thresholds) > 0 {
		return s
	}

	chem, err := catalog.LookupChemical(ctx, s.Chemical)
	if err != nil {
		logger.Warn("chemical lookup failed",
			"scenario_id", s.ID,
			"chemical", s.Chemical,
			"error", err,
		)
		return s
	}

	if s.MolecularWeight <= 0 {
		s.MolecularWeight = chem.MolecularWeight
	}
	if len(s.Thresholds) == 0 {
		s.Thresholds = chem.FamilyThresholds(s.ThresholdFamily)
	}
	return s
}
