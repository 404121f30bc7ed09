package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

var (
	stabLat   float64
	stabLon   float64
	stabTime  string
	stabWind  float64
	stabCloud float64
	stabTZ    float64
)

var stabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "Print the Pasquill-Gifford class for a time, place and wind",
	RunE:  runStability,
}

func init() {
	stabilityCmd.Flags().Float64Var(&stabLat, "lat", 0, "Latitude in degrees")
	stabilityCmd.Flags().Float64Var(&stabLon, "lon", 0, "Longitude in degrees")
	stabilityCmd.Flags().StringVar(&stabTime, "time", "", "Observation time, RFC 3339 (default now)")
	stabilityCmd.Flags().Float64Var(&stabWind, "wind", 5, "Wind speed at 10 m in m/s")
	stabilityCmd.Flags().Float64Var(&stabCloud, "cloud", 0.5, "Cloud cover fraction 0-1")
	stabilityCmd.Flags().Float64Var(&stabTZ, "tz", 0, "UTC offset in hours (default from --time)")
}

func runStability(cmd *cobra.Command, _ []string) error {
	t := time.Now()
	if stabTime != "" {
		parsed, err := time.Parse(time.RFC3339, stabTime)
		if err != nil {
			return fmt.Errorf("invalid --time: %w", err)
		}
		t = parsed
	}

	tz := stabTZ
	if cmd.Flags().Changed("tz") {
		t = t.In(time.FixedZone("", int(math.Round(tz*3600))))
	} else {
		_, offset := t.Zone()
		tz = float64(offset) / 3600
	}

	cloudiness := meteo.CloudinessTenths(stabCloud)
	class, err := meteo.Classify(stabWind, t, stabLat, stabLon, cloudiness, tz)
	if err != nil {
		return err
	}
	flux, sinElev := meteo.SolarInsolation(t, stabLat, stabLon, cloudiness, tz)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "class:        %s\n", class)
	fmt.Fprintf(out, "insolation:   %s (%.0f W/m²)\n", meteo.ClassifyInsolation(flux), flux)
	fmt.Fprintf(out, "sin(elev):    %.3f\n", sinElev)
	fmt.Fprintf(out, "cloudiness:   %d/10\n", cloudiness)
	fmt.Fprintf(out, "utc offset:   %+.1f h\n", tz)
	return nil
}
