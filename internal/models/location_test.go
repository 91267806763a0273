package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsglobe/backend/internal/models"
)

func TestLocationMarshalRawAsString(t *testing.T) {
	data, err := json.Marshal(models.RawLocation("Weather"))
	require.NoError(t, err)
	require.JSONEq(t, `"Weather"`, string(data))
}

func TestLocationMarshalResolvedAsObject(t *testing.T) {
	loc := models.NewResolvedLocation("Tulsa, OK, USA", 36.154, -95.9928, "74103")
	data, err := json.Marshal(loc)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"display_name": "Tulsa, OK, USA",
		"latitude": 36.154,
		"longitude": -95.9928,
		"postal_code": "74103"
	}`, string(data))
}

func TestLocationUnmarshalAcceptsBothForms(t *testing.T) {
	var raw models.Location
	require.NoError(t, json.Unmarshal([]byte(`"Sports"`), &raw))
	require.False(t, raw.Resolved())
	require.Equal(t, "Sports", raw.Hint())

	var resolved models.Location
	require.NoError(t, json.Unmarshal([]byte(`{
		"display_name": "Dallas, TX, USA",
		"latitude": 32.7767,
		"longitude": -96.797,
		"postal_code": "75201"
	}`), &resolved))
	require.True(t, resolved.Resolved())
	require.False(t, resolved.Sentinel())
	require.Equal(t, "Dallas, TX, USA", resolved.Hint())

	var bad models.Location
	require.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestLocationSentinel(t *testing.T) {
	require.True(t, models.NewResolvedLocation("Unknown", 0, 0, "00000").Sentinel())
	require.False(t, models.NewResolvedLocation("Dallas", 32.7767, -96.797, "75201").Sentinel())
	require.False(t, models.RawLocation("").Sentinel())
}
