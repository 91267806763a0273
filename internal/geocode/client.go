// Package geocode wraps an external free-text geocoding provider with a
// prefer-domestic selection policy, an expiry-aware access token, and
// distance/tier helpers around the reader's location.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/newsglobe/backend/internal/gazetteer"
	"github.com/newsglobe/backend/internal/models"
)

var (
	// ErrNoResult means the provider had nothing for the query.
	ErrNoResult = errors.New("geocode: no result")
	// ErrUnavailable means the provider was unreachable, timed out, or
	// returned an unusable payload. Callers that do not care about the
	// difference may treat it exactly like ErrNoResult.
	ErrUnavailable = errors.New("geocode: provider unavailable")
)

// Countries counted as domestic by the selection policy.
var domesticCountries = map[string]struct{}{
	"united states": {}, "usa": {}, "us": {},
}

// DefaultReader is the implicit distance origin: the geographic center
// of the contiguous United States.
var DefaultReader = Coordinates{Lat: 39.8283, Lon: -98.5795}

// Cache stores geocode results keyed by normalized query. Implementations
// live in internal/geocache; a nil cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) (*models.ResolvedLocation, bool)
	Set(ctx context.Context, key string, loc *models.ResolvedLocation)
}

// Config carries provider wiring. TokenURL is optional: when set, the
// client performs a client-credentials handshake and sends the cached
// bearer token; otherwise APIKey rides the query string.
type Config struct {
	BaseURL        string
	APIKey         string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Timeout        time.Duration
	PreferDomestic bool
	Thresholds     Thresholds
}

// Client resolves place names through the provider. Safe for concurrent
// use; the token cache refreshes under a single-flight guarantee.
type Client struct {
	cfg   Config
	hc    *http.Client
	gaz   *gazetteer.Gazetteer
	cache Cache
	log   *slog.Logger

	readerMu sync.RWMutex
	reader   Coordinates

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenGroup  singleflight.Group
}

// New builds a client. gaz may be nil (postal lookups then always hit
// the provider); cache may be nil; logger may be nil.
func New(cfg Config, gaz *gazetteer.Gazetteer, cache Cache, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("geocode: BaseURL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		gaz:    gaz,
		cache:  cache,
		log:    log,
		reader: DefaultReader,
	}, nil
}

// Thresholds exposes the configured tier thresholds.
func (c *Client) Thresholds() Thresholds { return c.cfg.Thresholds }

// ReaderLocation returns the current distance origin.
func (c *Client) ReaderLocation() Coordinates {
	c.readerMu.RLock()
	defer c.readerMu.RUnlock()
	return c.reader
}

// SetReaderLocation sets the distance origin directly by coordinates.
func (c *Client) SetReaderLocation(lat, lon float64) {
	c.readerMu.Lock()
	c.reader = Coordinates{Lat: lat, Lon: lon}
	c.readerMu.Unlock()
}

// SetReaderPostalCode resolves a postal code (gazetteer first, provider
// second) and adopts its coordinates as the distance origin.
func (c *Client) SetReaderPostalCode(ctx context.Context, code string) error {
	if c.gaz != nil {
		if p, ok := c.gaz.LookupByPostalCode(code); ok {
			c.SetReaderLocation(p.Latitude, p.Longitude)
			return nil
		}
	}
	loc, err := c.Geocode(ctx, code)
	if err != nil {
		return fmt.Errorf("resolve reader postal code %q: %w", code, err)
	}
	c.SetReaderLocation(loc.Latitude, loc.Longitude)
	return nil
}

// providerResult mirrors the provider's per-result payload.
type providerResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Country          string  `json:"country"`
	State            string  `json:"state"`
	City             string  `json:"city"`
	PostalCode       string  `json:"postalCode"`
	FormattedAddress string  `json:"formattedAddress"`
}

// Geocode resolves a free-text place name. The empty string and the
// reserved "global" sentinel return ErrNoResult without a provider call.
// Transport and parse failures surface as ErrUnavailable.
func (c *Client) Geocode(ctx context.Context, name string) (*models.ResolvedLocation, error) {
	query := strings.TrimSpace(name)
	if query == "" || strings.EqualFold(query, "global") {
		return nil, fmt.Errorf("%w: %q is not a location", ErrNoResult, name)
	}

	key := strings.ToLower(query)
	if c.cache != nil {
		if loc, ok := c.cache.Get(ctx, key); ok {
			copied := *loc
			return &copied, nil
		}
	}

	results, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResult, query)
	}

	picked := results[0]
	if c.cfg.PreferDomestic && len(results) > 1 {
		for _, r := range results {
			if isDomesticCountry(r.Country) {
				picked = r
				break
			}
		}
	}

	loc := &models.ResolvedLocation{
		Name:       picked.FormattedAddress,
		Latitude:   picked.Lat,
		Longitude:  picked.Lng,
		PostalCode: picked.PostalCode,
		City:       picked.City,
		Region:     picked.State,
		Country:    picked.Country,
		Domestic:   isDomesticCountry(picked.Country),
	}
	if loc.Name == "" {
		loc.Name = query
	}
	if loc.PostalCode == "" {
		loc.PostalCode = "00000"
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, loc)
	}
	copied := *loc
	return &copied, nil
}

func (c *Client) query(ctx context.Context, query string) ([]providerResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if c.cfg.APIKey != "" && c.cfg.TokenURL == "" {
		q.Set("key", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	if c.cfg.TokenURL != "" {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("geocode request failed", slog.String("query", query), slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("geocode bad status",
			slog.String("query", query),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	results, err := decodeResults(resp.Body)
	if err != nil {
		c.log.Warn("geocode decode failed", slog.String("query", query), slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.log.Debug("geocode",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("latency", time.Since(start)),
	)
	return results, nil
}

// decodeResults accepts both a bare array and a {"results": [...]} wrapper.
func decodeResults(r io.Reader) ([]providerResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var arr []providerResult
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}

	var wrapped struct {
		Results []providerResult `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	return wrapped.Results, nil
}

// DistanceFrom geocodes a name and returns its distance from the reader
// location. ErrNoResult when the name cannot be resolved.
func (c *Client) DistanceFrom(ctx context.Context, name string) (*models.DistanceResult, error) {
	loc, err := c.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}
	meters := Distance(c.ReaderLocation(), Coordinates{Lat: loc.Latitude, Lon: loc.Longitude})
	res, err := NewDistanceResult(meters, c.cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DistanceBetween geocodes two postal codes and returns the distance
// between them; fails with ErrNoResult when either endpoint fails.
func (c *Client) DistanceBetween(ctx context.Context, postalA, postalB string) (*models.DistanceResult, error) {
	a, err := c.resolvePostal(ctx, postalA)
	if err != nil {
		return nil, err
	}
	b, err := c.resolvePostal(ctx, postalB)
	if err != nil {
		return nil, err
	}
	res, err := NewDistanceResult(Distance(a, b), c.cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) resolvePostal(ctx context.Context, code string) (Coordinates, error) {
	if c.gaz != nil {
		if p, ok := c.gaz.LookupByPostalCode(code); ok {
			return Coordinates{Lat: p.Latitude, Lon: p.Longitude}, nil
		}
	}
	loc, err := c.Geocode(ctx, code)
	if err != nil {
		return Coordinates{}, err
	}
	return Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
