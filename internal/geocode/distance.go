package geocode

import (
	"errors"
	"fmt"
	"math"

	"github.com/newsglobe/backend/internal/models"
)

// ErrInvalidDistance marks a programming error: a negative or NaN
// distance handed to the classifier. It is never coerced to a tier.
var ErrInvalidDistance = errors.New("geocode: invalid distance")

const (
	earthRadiusMeters = 6371000.0
	metersPerMile     = 1609.344
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Thresholds map a distance in kilometers to a tier. Boundary values
// belong to the closer tier: d <= CloseKm is close, d <= MediumKm is
// medium, anything beyond is far.
type Thresholds struct {
	CloseKm  float64
	MediumKm float64
}

// DefaultThresholds returns the 240 km / 1600 km defaults
// (roughly 150 and 1000 miles).
func DefaultThresholds() Thresholds {
	return Thresholds{CloseKm: 240, MediumKm: 1600}
}

// Classify maps a distance in kilometers to a tier. Total over all
// non-negative reals; rejects NaN and negative input.
func (t Thresholds) Classify(km float64) (models.Tier, error) {
	if math.IsNaN(km) || km < 0 {
		return models.TierUnknown, fmt.Errorf("%w: %v km", ErrInvalidDistance, km)
	}
	switch {
	case km <= t.CloseKm:
		return models.TierClose, nil
	case km <= t.MediumKm:
		return models.TierMedium, nil
	default:
		return models.TierFar, nil
	}
}

// Distance returns the great-circle distance between two coordinate
// pairs in meters (haversine).
func Distance(a, b Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// NewDistanceResult classifies a distance in meters and fills in every
// unit downstream consumers ask for.
func NewDistanceResult(meters float64, t Thresholds) (models.DistanceResult, error) {
	tier, err := t.Classify(meters / 1000)
	if err != nil {
		return models.DistanceResult{}, err
	}
	return models.DistanceResult{
		Meters:     meters,
		Kilometers: meters / 1000,
		Miles:      meters / metersPerMile,
		Tier:       tier,
	}, nil
}
