package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to enrich a scenario's release site with
// geocoding data. If geocoder is nil or geocoding fails, the site is returned
// with GeoSource set accordingly (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, s Scenario, geocoder Geocoder, logger *slog.Logger) Scenario {
	if geocoder == nil {
		return s
	}

	site := s.Site
	hasName := site.Name != ""

	// Forward geocode: site name → coordinates (when coords are missing).
	if !site.HasCoords() && hasName {
		result, err := geocoder.ForwardGeocode(ctx, site.Name, site.Region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"scenario_id", s.ID,
				"site", site.Name,
				"region", site.Region,
				"error", err,
			)
			s.Site.GeoSource = "failed"
			return s
		}
		if result.Lat != 0 || result.Lon != 0 {
			s.Site.Lat = result.Lat
			s.Site.Lon = result.Lon
			s.Site.FormattedAddress = result.FormattedAddress
			s.Site.PlaceName = result.PlaceName
			s.Site.GeoConfidence = result.Confidence
			s.Site.GeoSource = "forward"
			return s
		}
		s.Site.GeoSource = "original"
		return s
	}

	// Reverse geocode: coordinates → place details (when coords are present).
	if site.HasCoords() {
		result, err := geocoder.ReverseGeocode(ctx, site.Lat, site.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"scenario_id", s.ID,
				"lat", site.Lat,
				"lon", site.Lon,
				"error", err,
			)
			s.Site.GeoSource = "failed"
			return s
		}
		if result.FormattedAddress != "" {
			s.Site.FormattedAddress = result.FormattedAddress
			s.Site.PlaceName = result.PlaceName
			s.Site.GeoConfidence = result.Confidence
			s.Site.GeoSource = "reverse"
			return s
		}
		s.Site.GeoSource = "original"
		return s
	}

	s.Site.GeoSource = "original"
	return s
}
