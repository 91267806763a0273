package geocode_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsglobe/backend/internal/gazetteer"
	"github.com/newsglobe/backend/internal/geocache"
	"github.com/newsglobe/backend/internal/geocode"
	"github.com/newsglobe/backend/internal/models"
)

type fakeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Country          string  `json:"country"`
	State            string  `json:"state"`
	City             string  `json:"city"`
	PostalCode       string  `json:"postalCode"`
	FormattedAddress string  `json:"formattedAddress"`
}

func newProvider(t *testing.T, calls *atomic.Int64, results map[string][]fakeResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query().Get("q")
		res, ok := results[q]
		if !ok {
			res = []fakeResult{}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
}

func newClient(t *testing.T, cfg geocode.Config) *geocode.Client {
	t.Helper()
	gaz, err := gazetteer.New()
	require.NoError(t, err)
	c, err := geocode.New(cfg, gaz, nil, nil)
	require.NoError(t, err)
	return c
}

func TestGeocodeReservedSentinels(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, nil)
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	for _, q := range []string{"", "   ", "global", "Global", "GLOBAL"} {
		_, err := c.Geocode(context.Background(), q)
		require.ErrorIs(t, err, geocode.ErrNoResult, "query %q", q)
	}
	require.Zero(t, calls.Load(), "reserved sentinels must not reach the provider")
}

func TestGeocodeSuccess(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, map[string][]fakeResult{
		"Florida": {{
			Lat: 27.6648, Lng: -81.5158,
			Country: "United States", State: "Florida",
			PostalCode: "32801", FormattedAddress: "Florida, USA",
		}},
	})
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	loc, err := c.Geocode(context.Background(), "Florida")
	require.NoError(t, err)
	require.Equal(t, "Florida, USA", loc.Name)
	require.InDelta(t, 27.6648, loc.Latitude, 1e-9)
	require.Equal(t, "32801", loc.PostalCode)
	require.True(t, loc.Domestic)
	require.Equal(t, int64(1), calls.Load())
}

func TestGeocodePostalCodeDefaultsToSentinel(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, map[string][]fakeResult{
		"Nowhere Ridge": {{Lat: 41.0, Lng: -100.0, Country: "United States"}},
	})
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	loc, err := c.Geocode(context.Background(), "Nowhere Ridge")
	require.NoError(t, err)
	require.Equal(t, "00000", loc.PostalCode)
	require.Equal(t, "Nowhere Ridge", loc.Name, "query stands in for a missing formatted address")
}

func TestGeocodePreferDomestic(t *testing.T) {
	results := map[string][]fakeResult{
		"Birmingham": {
			{Lat: 52.4862, Lng: -1.8904, Country: "United Kingdom", City: "Birmingham", FormattedAddress: "Birmingham, UK"},
			{Lat: 33.5186, Lng: -86.8104, Country: "United States", City: "Birmingham", FormattedAddress: "Birmingham, AL, USA"},
		},
	}

	var calls atomic.Int64
	srv := newProvider(t, &calls, results)
	defer srv.Close()

	preferred := newClient(t, geocode.Config{BaseURL: srv.URL, PreferDomestic: true})
	loc, err := preferred.Geocode(context.Background(), "Birmingham")
	require.NoError(t, err)
	require.Equal(t, "Birmingham, AL, USA", loc.Name)
	require.True(t, loc.Domestic)

	raw := newClient(t, geocode.Config{BaseURL: srv.URL, PreferDomestic: false})
	loc, err = raw.Geocode(context.Background(), "Birmingham")
	require.NoError(t, err)
	require.Equal(t, "Birmingham, UK", loc.Name)
	require.False(t, loc.Domestic)
}

func TestGeocodeNoResults(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, nil)
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	_, err := c.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, geocode.ErrNoResult)
}

func TestGeocodeProviderErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	_, err := c.Geocode(context.Background(), "Dallas")
	require.ErrorIs(t, err, geocode.ErrUnavailable)

	srv.Close() // transport error path
	_, err = c.Geocode(context.Background(), "Dallas")
	require.ErrorIs(t, err, geocode.ErrUnavailable)
}

func TestGeocodeMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	_, err := c.Geocode(context.Background(), "Dallas")
	require.ErrorIs(t, err, geocode.ErrUnavailable)
}

func TestGeocodeWrappedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"lat":1,"lng":2,"country":"US","formattedAddress":"Somewhere"}]}`)
	}))
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	loc, err := c.Geocode(context.Background(), "Somewhere")
	require.NoError(t, err)
	require.Equal(t, "Somewhere", loc.Name)
	require.True(t, loc.Domestic)
}

func TestGeocodeUsesCache(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, map[string][]fakeResult{
		"Dallas": {{Lat: 32.7767, Lng: -96.797, Country: "United States", PostalCode: "75201", FormattedAddress: "Dallas, TX, USA"}},
	})
	defer srv.Close()

	gaz, err := gazetteer.New()
	require.NoError(t, err)
	c, err := geocode.New(geocode.Config{BaseURL: srv.URL}, gaz, geocache.NewMemory(10, time.Minute), nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		loc, err := c.Geocode(context.Background(), "Dallas")
		require.NoError(t, err)
		require.Equal(t, "Dallas, TX, USA", loc.Name)
	}
	require.Equal(t, int64(1), calls.Load(), "repeat queries must hit the cache")
}

func TestAccessTokenSingleFlight(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	var geoCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geoCalls.Add(1)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"lat":1,"lng":2,"country":"US"}]`)
	}))
	defer srv.Close()

	c := newClient(t, geocode.Config{
		BaseURL:      srv.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := c.Geocode(context.Background(), fmt.Sprintf("place-%d", n))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), tokenCalls.Load(), "concurrent resolutions must share one token refresh")
	require.Equal(t, int64(8), geoCalls.Load())
}

func TestSetReaderPostalCodeUsesGazetteer(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, nil)
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	require.NoError(t, c.SetReaderPostalCode(context.Background(), "73102"))
	reader := c.ReaderLocation()
	require.InDelta(t, 35.4676, reader.Lat, 1e-4)
	require.Zero(t, calls.Load(), "known postal codes resolve without the provider")
}

func TestDistanceFromClassifiesAgainstReader(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, map[string][]fakeResult{
		"Florida": {{Lat: 27.6648, Lng: -81.5158, Country: "United States", FormattedAddress: "Florida, USA"}},
		"Tulsa":   {{Lat: 36.154, Lng: -95.9928, Country: "United States", FormattedAddress: "Tulsa, OK, USA"}},
	})
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})
	c.SetReaderLocation(35.4676, -97.5164) // Oklahoma City

	far, err := c.DistanceFrom(context.Background(), "Florida")
	require.NoError(t, err)
	require.Greater(t, far.Kilometers, 1600.0)
	require.Equal(t, models.TierFar, far.Tier)

	close_, err := c.DistanceFrom(context.Background(), "Tulsa")
	require.NoError(t, err)
	require.LessOrEqual(t, close_.Kilometers, 240.0)
	require.Equal(t, models.TierClose, close_.Tier)

	_, err = c.DistanceFrom(context.Background(), "Atlantis")
	require.ErrorIs(t, err, geocode.ErrNoResult)
}

func TestDistanceBetweenPostalCodes(t *testing.T) {
	var calls atomic.Int64
	srv := newProvider(t, &calls, nil)
	defer srv.Close()

	c := newClient(t, geocode.Config{BaseURL: srv.URL})

	// OKC and Dallas city-hall codes, both in the gazetteer.
	res, err := c.DistanceBetween(context.Background(), "73102", "75201")
	require.NoError(t, err)
	require.InDelta(t, 306, res.Kilometers, 5)
	require.Equal(t, models.TierMedium, res.Tier)

	_, err = c.DistanceBetween(context.Background(), "73102", "99999")
	require.ErrorIs(t, err, geocode.ErrNoResult)
}
