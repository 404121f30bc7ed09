package meteo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var equinoxNoon = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

func TestSolarInsolation_EquatorEquinoxNoon(t *testing.T) {
	flux, sinElev := SolarInsolation(equinoxNoon, 0, 0, 0, 0)
	assert.InDelta(t, 1.0, sinElev, 0.01)
	assert.InDelta(t, 999.9, flux, 15)
	assert.Equal(t, InsolationStrong, ClassifyInsolation(flux))
}

func TestSolarInsolation_CloudsAttenuate(t *testing.T) {
	clear, _ := SolarInsolation(equinoxNoon, 0, 0, 0, 0)
	overcast, _ := SolarInsolation(equinoxNoon, 0, 0, 10, 0)
	assert.Less(t, overcast, clear)
	assert.Equal(t, InsolationSlight, ClassifyInsolation(overcast))
}

func TestSolarInsolation_NightIsZero(t *testing.T) {
	midnight := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	flux, sinElev := SolarInsolation(midnight, 0, 0, 0, 0)
	assert.Zero(t, flux)
	assert.Less(t, sinElev, 0.0)
}

func TestSolarInsolation_LongitudeCorrection(t *testing.T) {
	// Noon on the 90°E standard meridian is solar noon there.
	greenwich, _ := SolarInsolation(equinoxNoon, 10, 0, 0, 0)
	east, _ := SolarInsolation(equinoxNoon, 10, 90, 0, 6)
	assert.InDelta(t, greenwich, east, 1e-9)
}

func TestClassifyInsolation_Boundaries(t *testing.T) {
	tests := []struct {
		flux float64
		want Insolation
	}{
		{flux: 0, want: InsolationNone},
		{flux: 176, want: InsolationNone},
		{flux: 176.1, want: InsolationSlight},
		{flux: 520, want: InsolationSlight},
		{flux: 520.1, want: InsolationModerate},
		{flux: 851, want: InsolationModerate},
		{flux: 851.1, want: InsolationStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyInsolation(tt.flux), "flux %v", tt.flux)
	}
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name       string
		insolation Insolation
		wind       float64
		cloud      int
		want       StabilityClass
	}{
		{name: "strong calm", insolation: InsolationStrong, wind: 1, want: ClassA},
		{name: "strong 2-3", insolation: InsolationStrong, wind: 2.5, want: ClassB},
		{name: "strong windy", insolation: InsolationStrong, wind: 7, want: ClassC},
		{name: "moderate 3-5", insolation: InsolationModerate, wind: 4, want: ClassC},
		{name: "moderate 5-6", insolation: InsolationModerate, wind: 5.5, want: ClassD},
		{name: "slight calm", insolation: InsolationSlight, wind: 1.9, want: ClassB},
		{name: "slight 2-3", insolation: InsolationSlight, wind: 2, want: ClassC},
		{name: "night clear calm", insolation: InsolationNone, wind: 1, cloud: 2, want: ClassF},
		{name: "night clear 3-5", insolation: InsolationNone, wind: 4, cloud: 4, want: ClassE},
		{name: "night cloudy calm", insolation: InsolationNone, wind: 1, cloud: 5, want: ClassE},
		{name: "night cloudy 3-5", insolation: InsolationNone, wind: 3, cloud: 8, want: ClassD},
		{name: "night windy", insolation: InsolationNone, wind: 8, cloud: 0, want: ClassD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTable(tt.insolation, tt.wind, tt.cloud))
		})
	}
}

func TestClassifyTable_NightNeverUnstable(t *testing.T) {
	for cloud := 0; cloud <= 10; cloud++ {
		for _, wind := range []float64{0, 1.5, 2.5, 4, 5.5, 9} {
			c := ClassifyTable(InsolationNone, wind, cloud)
			assert.GreaterOrEqual(t, c, ClassD, "cloud %d wind %v", cloud, wind)
		}
	}
}

func TestClassify(t *testing.T) {
	c, err := Classify(1.0, equinoxNoon, 0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ClassA, c)

	night := time.Date(2024, time.June, 1, 2, 0, 0, 0, time.UTC)
	c, err = Classify(1.0, night, 51.5, 0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, ClassF, c)
}

func TestClassify_InvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		wind  float64
		lat   float64
		cloud int
	}{
		{name: "negative wind", wind: -1, lat: 0, cloud: 0},
		{name: "cloud above ten", wind: 3, lat: 0, cloud: 11},
		{name: "cloud negative", wind: 3, lat: 0, cloud: -1},
		{name: "latitude out of range", wind: 3, lat: 95, cloud: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.wind, equinoxNoon, tt.lat, 0, tt.cloud, 0)
			require.ErrorIs(t, err, ErrInvalidWeather)

			c, err := ClassifyOrNeutral(tt.wind, equinoxNoon, tt.lat, 0, tt.cloud, 0)
			require.Error(t, err)
			assert.Equal(t, ClassD, c)
		})
	}
}

func TestParseStabilityClass(t *testing.T) {
	c, err := ParseStabilityClass(" e ")
	require.NoError(t, err)
	assert.Equal(t, ClassE, c)
	assert.Equal(t, "E", c.String())

	_, err = ParseStabilityClass("G")
	require.ErrorIs(t, err, ErrInvalidClass)
	_, err = ParseStabilityClass("")
	require.ErrorIs(t, err, ErrInvalidClass)
}

func TestStabilityClass_TextRoundTrip(t *testing.T) {
	b, err := ClassC.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "C", string(b))

	var c StabilityClass
	require.NoError(t, c.UnmarshalText([]byte("f")))
	assert.Equal(t, ClassF, c)
}

func TestCloudinessTenths(t *testing.T) {
	assert.Equal(t, 0, CloudinessTenths(0))
	assert.Equal(t, 4, CloudinessTenths(0.49))
	assert.Equal(t, 5, CloudinessTenths(0.5))
	assert.Equal(t, 10, CloudinessTenths(1))
}
