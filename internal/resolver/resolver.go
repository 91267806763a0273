// Package resolver chains extraction, geocoding, and tier classification
// for one article at a time. Every failure path still produces an
// article whose location is the structured form; nothing escapes this
// boundary as an error.
package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/newsglobe/backend/internal/extract"
	"github.com/newsglobe/backend/internal/fetch"
	"github.com/newsglobe/backend/internal/geocode"
	"github.com/newsglobe/backend/internal/models"
)

// Geocoder is the slice of the geocoding client the resolver needs.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*models.ResolvedLocation, error)
}

// TextFetcher is the slice of the full-text fetcher the resolver needs.
type TextFetcher interface {
	Paywalled(rawURL string) bool
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Options control one resolution pass.
type Options struct {
	// MinConfidence is the bar the top candidate must clear before the
	// resolver skips the full-text escalation.
	MinConfidence float64
	// FetchFullContent permits fetching the source page when the initial
	// extraction is weak.
	FetchFullContent bool
	// DefaultPostalCode fills in when no postal code could be resolved.
	DefaultPostalCode string
}

// DefaultOptions returns the standard knobs.
func DefaultOptions() Options {
	return Options{
		MinConfidence:     0.3,
		FetchFullContent:  true,
		DefaultPostalCode: "00000",
	}
}

// Resolver runs the pipeline. Stateless per article; safe to share
// across a concurrent batch.
type Resolver struct {
	extractor *extract.Extractor
	geo       Geocoder
	fetcher   TextFetcher
	opts      Options
	log       *slog.Logger
}

// New wires the pipeline. fetcher may be nil to disable escalation
// regardless of options; log may be nil.
func New(extractor *extract.Extractor, geo Geocoder, fetcher TextFetcher, opts Options, log *slog.Logger) *Resolver {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultOptions().MinConfidence
	}
	if opts.DefaultPostalCode == "" {
		opts.DefaultPostalCode = DefaultOptions().DefaultPostalCode
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{extractor: extractor, geo: geo, fetcher: fetcher, opts: opts, log: log}
}

// Resolve annotates one article with a structured location. Terminal
// outcomes are geocoded, fallback-geocoded, or the zero-coordinate
// sentinel; all three are valid, non-error results.
func (r *Resolver) Resolve(ctx context.Context, art models.Article) models.Article {
	hint := strings.TrimSpace(art.Location.Hint())
	alreadyResolved := art.Location.Resolved() && !art.Location.Sentinel()

	best := r.bestCandidate(ctx, art)

	var winner string
	if best != nil {
		winner = best.Name
	}

	loc := r.geocodeWinner(ctx, art.ID, winner, hint)
	if loc != nil {
		postal := loc.PostalCode
		if postal == "" || postal == "00000" {
			postal = r.opts.DefaultPostalCode
		}
		name := loc.Name
		if name == "" {
			name = winner
		}
		art.Location = models.NewResolvedLocation(name, loc.Latitude, loc.Longitude, postal)
		return art
	}

	// Total failure. An article that already carried a good structured
	// location keeps it rather than regressing to the sentinel.
	if alreadyResolved {
		return art
	}

	display := winner
	if display == "" {
		display = hint
	}
	if display == "" {
		display = "Unknown"
	}
	art.Location = models.NewResolvedLocation(display, 0, 0, r.opts.DefaultPostalCode)
	return art
}

// bestCandidate extracts from title+content and escalates to the full
// page when the result is missing or weak. The re-extracted candidate is
// adopted only when it clears MinConfidence without regressing below the
// original.
func (r *Resolver) bestCandidate(ctx context.Context, art models.Article) *models.Candidate {
	candidates := r.extractor.Extract(strings.TrimSpace(art.Title + " " + art.Content))

	var best *models.Candidate
	if len(candidates) > 0 {
		best = &candidates[0]
	}

	if best != nil && best.Confidence >= r.opts.MinConfidence {
		return best
	}
	if !r.opts.FetchFullContent || r.fetcher == nil || art.SourceURL == "" {
		return best
	}
	if r.fetcher.Paywalled(art.SourceURL) {
		r.log.Debug("skip full-text fetch for paywalled source",
			slog.String("article", art.ID),
			slog.String("url", art.SourceURL),
		)
		return best
	}

	text, err := r.fetcher.FetchText(ctx, art.SourceURL)
	if err != nil {
		r.log.Debug("full-text fetch failed",
			slog.String("article", art.ID),
			slog.Any("err", err),
		)
		return best
	}

	refreshed := r.extractor.Extract(text)
	if len(refreshed) == 0 {
		return best
	}
	top := refreshed[0]
	if top.Confidence < r.opts.MinConfidence {
		return best
	}
	if best != nil && top.Confidence < best.Confidence {
		return best
	}
	return &top
}

// geocodeWinner resolves the winning candidate and falls back to the
// article's original location hint. Both "no result" and provider
// errors degrade identically here.
func (r *Resolver) geocodeWinner(ctx context.Context, id, winner, hint string) *models.ResolvedLocation {
	if winner != "" {
		loc, err := r.geo.Geocode(ctx, winner)
		if err == nil {
			return loc
		}
		r.logGeocodeFailure(id, winner, err)
	}

	if !usableHint(hint) || strings.EqualFold(hint, winner) {
		return nil
	}
	loc, err := r.geo.Geocode(ctx, hint)
	if err != nil {
		r.logGeocodeFailure(id, hint, err)
		return nil
	}
	return loc
}

func (r *Resolver) logGeocodeFailure(id, name string, err error) {
	if errors.Is(err, geocode.ErrNoResult) {
		r.log.Debug("geocode found nothing", slog.String("article", id), slog.String("name", name))
		return
	}
	r.log.Warn("geocode failed", slog.String("article", id), slog.String("name", name), slog.Any("err", err))
}

func usableHint(hint string) bool {
	if hint == "" {
		return false
	}
	return !strings.EqualFold(hint, "unknown")
}

// Annotate recomputes tier and distance against the current reader
// location. Request-time-relative: call it at response time, never
// persist the result.
func Annotate(art models.Article, reader geocode.Coordinates, t geocode.Thresholds) models.Article {
	if !art.Location.Resolved() || art.Location.Sentinel() {
		art.Tier = models.TierUnknown
		art.Distance = nil
		return art
	}

	meters := geocode.Distance(reader, geocode.Coordinates{
		Lat: art.Location.Latitude,
		Lon: art.Location.Longitude,
	})
	res, err := geocode.NewDistanceResult(meters, t)
	if err != nil {
		art.Tier = models.TierUnknown
		art.Distance = nil
		return art
	}
	art.Tier = res.Tier
	art.Distance = &res
	return art
}

var _ TextFetcher = (*fetch.Fetcher)(nil)
var _ Geocoder = (*geocode.Client)(nil)
