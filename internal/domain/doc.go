// Package domain models chemical release scenarios and the threat-zone
// assessments computed from them.
//
// # Scenarios
//
// A scenario arrives as JSON on the source topic or over HTTP. It names a
// chemical, a release site and, optionally, the weather, release parameters,
// individual sources, thresholds and an evaluation grid. Anything left out
// falls back to engine [Defaults] or to catalog data:
//
//	molecular weight, thresholds  ← chemical catalog (see [EnrichWithCatalog])
//	site coordinates              ← forward geocoding of site name and region
//	weather                       ← 5 m/s from 270°, 298.15 K, half cloud cover
//	stability class               ← Turner insolation method, neutral D on failure
//
// Threshold values may be numbers or strings with a unit suffix ("30 ppm").
// Thresholds are applied in hazard order: AEGL-1..3, ERPG-1..3, PAC-1..3,
// IDLH, then any other names alphabetically.
//
// # Frames
//
// The plume is computed on a local grid in meters with +x pointing along
// the rotated wind axis and the origin at the site. Zones are reported as
// GeoJSON polygons in (lon, lat). Sources can be placed either way; each is
// resolved to both.
//
// # Outcomes
//
// Every requested threshold yields a [ZoneReport]. Absent zones carry an
// outcome explaining why: invalid_threshold, above_maximum, no_contour or
// too_few_points. A bad threshold never prevents other zones from being
// reported. Scenario-level problems such as non-physical weather return an
// error wrapping [ErrInvalidScenario].
//
// # ID Generation
//
// Assessment IDs are deterministic SHA-256 hashes of the scenario identity
// and payload, so replaying a message produces the same ID. See [generateID].
package domain
