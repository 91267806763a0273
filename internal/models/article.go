package models

import "time"

// Article is the canonical record exchanged with the content-fetch and
// persistence layers. Tier and Distance are computed against the current
// reader location at response time and are never persisted.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Location    Location  `json:"location"`

	Tier     Tier            `json:"tier,omitempty"`
	Distance *DistanceResult `json:"distance,omitempty"`
}

// Candidate is an extracted, not-yet-geocoded place mention.
type Candidate struct {
	Name       string  `json:"name"`
	Mentions   int     `json:"mentions"`
	Confidence float64 `json:"confidence"`
	Domestic   bool    `json:"is_domestic"`
}

// ResolvedLocation is a geocoded place with administrative metadata.
// PostalCode carries the "00000" sentinel when the provider returned none.
type ResolvedLocation struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	PostalCode string  `json:"postal_code"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	Country    string  `json:"country,omitempty"`
	Domestic   bool    `json:"is_domestic"`
}

// DistanceResult bundles one distance in every unit consumers ask for.
type DistanceResult struct {
	Meters     float64 `json:"meters"`
	Kilometers float64 `json:"kilometers"`
	Miles      float64 `json:"miles"`
	Tier       Tier    `json:"tier"`
}
