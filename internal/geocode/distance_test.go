package geocode_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsglobe/backend/internal/geocode"
	"github.com/newsglobe/backend/internal/models"
)

func TestClassifyBoundaries(t *testing.T) {
	th := geocode.DefaultThresholds()

	tests := []struct {
		km   float64
		want models.Tier
	}{
		{0, models.TierClose},
		{239.9, models.TierClose},
		{240, models.TierClose},
		{240.0001, models.TierMedium},
		{1000, models.TierMedium},
		{1600, models.TierMedium},
		{1600.0001, models.TierFar},
		{20000, models.TierFar},
	}
	for _, tt := range tests {
		got, err := th.Classify(tt.km)
		require.NoError(t, err, "km=%v", tt.km)
		require.Equal(t, tt.want, got, "km=%v", tt.km)
	}
}

func TestClassifyRejectsInvalidInput(t *testing.T) {
	th := geocode.DefaultThresholds()

	_, err := th.Classify(-1)
	require.ErrorIs(t, err, geocode.ErrInvalidDistance)

	_, err = th.Classify(math.NaN())
	require.ErrorIs(t, err, geocode.ErrInvalidDistance)
}

func TestClassifyCustomThresholds(t *testing.T) {
	th := geocode.Thresholds{CloseKm: 10, MediumKm: 100}

	got, err := th.Classify(10)
	require.NoError(t, err)
	require.Equal(t, models.TierClose, got)

	got, err = th.Classify(50)
	require.NoError(t, err)
	require.Equal(t, models.TierMedium, got)

	got, err = th.Classify(101)
	require.NoError(t, err)
	require.Equal(t, models.TierFar, got)
}

func TestDistanceSymmetryAndIdentity(t *testing.T) {
	okc := geocode.Coordinates{Lat: 35.4676, Lon: -97.5164}
	dallas := geocode.Coordinates{Lat: 32.7767, Lon: -96.797}

	require.Zero(t, geocode.Distance(okc, okc))
	require.InDelta(t, geocode.Distance(okc, dallas), geocode.Distance(dallas, okc), 1e-6)

	// OKC to Dallas is roughly 306 km great-circle.
	km := geocode.Distance(okc, dallas) / 1000
	require.InDelta(t, 306, km, 5)
}

func TestNewDistanceResultUnits(t *testing.T) {
	res, err := geocode.NewDistanceResult(160934.4, geocode.DefaultThresholds())
	require.NoError(t, err)
	require.InDelta(t, 160.9344, res.Kilometers, 1e-6)
	require.InDelta(t, 100, res.Miles, 1e-6)
	require.Equal(t, models.TierClose, res.Tier)

	_, err = geocode.NewDistanceResult(-5, geocode.DefaultThresholds())
	require.ErrorIs(t, err, geocode.ErrInvalidDistance)
}
