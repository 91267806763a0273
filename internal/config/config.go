package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Geocoder holds provider wiring shared by every consumer of the
// geocoding client.
type Geocoder struct {
	BaseURL        string
	APIKey         string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Timeout        time.Duration
	PreferDomestic bool
}

// Worker holds configuration for the batch geo-annotation worker.
type Worker struct {
	Geocoder

	CloseKm  float64
	MediumKm float64

	MinConfidence     float64
	FetchFullContent  bool
	DefaultPostalCode string

	ReaderLat        float64
	ReaderLon        float64
	ReaderPostalCode string

	FetchTimeout time.Duration
	Concurrency  int

	CacheCapacity int
	CacheTTL      time.Duration
	RedisAddr     string
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Geocoder: Geocoder{
			BaseURL:        getEnv("GEOCODER_URL", ""),
			APIKey:         getEnv("GEOCODER_API_KEY", ""),
			TokenURL:       getEnv("GEOCODER_TOKEN_URL", ""),
			ClientID:       getEnv("GEOCODER_CLIENT_ID", ""),
			ClientSecret:   getEnv("GEOCODER_CLIENT_SECRET", ""),
			Timeout:        getDuration("GEOCODER_TIMEOUT", "10s"),
			PreferDomestic: getBool("GEOCODER_PREFER_DOMESTIC", true),
		},
		CloseKm:           getFloat("TIER_CLOSE_KM", 240),
		MediumKm:          getFloat("TIER_MEDIUM_KM", 1600),
		MinConfidence:     getFloat("RESOLVER_MIN_CONFIDENCE", 0.3),
		FetchFullContent:  getBool("RESOLVER_FETCH_FULL_CONTENT", true),
		DefaultPostalCode: getEnv("RESOLVER_DEFAULT_POSTAL_CODE", "00000"),
		ReaderLat:         getFloat("READER_LAT", 0),
		ReaderLon:         getFloat("READER_LON", 0),
		ReaderPostalCode:  getEnv("READER_POSTAL_CODE", ""),
		FetchTimeout:      getDuration("FETCH_TIMEOUT", "15s"),
		Concurrency:       getInt("WORKER_CONCURRENCY", 8),
		CacheCapacity:     getInt("GEOCACHE_CAPACITY", 1000),
		CacheTTL:          getDuration("GEOCACHE_TTL", "1h"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
	}

	if c.BaseURL == "" {
		return nil, fmt.Errorf("GEOCODER_URL must be set")
	}
	if c.TokenURL != "" && (c.ClientID == "" || c.ClientSecret == "") {
		return nil, fmt.Errorf("GEOCODER_TOKEN_URL requires GEOCODER_CLIENT_ID and GEOCODER_CLIENT_SECRET")
	}
	if c.CloseKm <= 0 {
		return nil, fmt.Errorf("TIER_CLOSE_KM must be positive")
	}
	if c.MediumKm <= c.CloseKm {
		return nil, fmt.Errorf("TIER_MEDIUM_KM must exceed TIER_CLOSE_KM")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return nil, fmt.Errorf("RESOLVER_MIN_CONFIDENCE must be within [0,1]")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.CacheCapacity <= 0 {
		return nil, fmt.Errorf("GEOCACHE_CAPACITY must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}
