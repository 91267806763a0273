package models

import (
	"encoding/json"
	"fmt"
)

// LocationKind tags the two states a location field can be in.
type LocationKind int

const (
	// LocationRaw is the transient pre-resolution form: a bare display
	// string supplied by a content source (often a category tag).
	LocationRaw LocationKind = iota
	// LocationResolved is the structured form every article carries after
	// the resolver has run.
	LocationResolved
)

// Location is a tagged sum over the raw and resolved forms. Consumers
// switch on Kind instead of runtime type-checking. A resolved location
// with zero coordinates is the "could not determine" sentinel, not a
// point in the Gulf of Guinea.
type Location struct {
	Kind LocationKind

	// Raw is set only while Kind == LocationRaw.
	Raw string

	DisplayName string
	Latitude    float64
	Longitude   float64
	PostalCode  string
}

// RawLocation wraps a pre-resolution display string.
func RawLocation(s string) Location {
	return Location{Kind: LocationRaw, Raw: s}
}

// NewResolvedLocation builds the structured form.
func NewResolvedLocation(displayName string, lat, lon float64, postalCode string) Location {
	return Location{
		Kind:        LocationResolved,
		DisplayName: displayName,
		Latitude:    lat,
		Longitude:   lon,
		PostalCode:  postalCode,
	}
}

// Resolved reports whether the location is in the structured form.
func (l Location) Resolved() bool { return l.Kind == LocationResolved }

// Sentinel reports whether the location is the canonical zero-coordinate
// "unresolved" marker. Only meaningful for resolved locations.
func (l Location) Sentinel() bool {
	return l.Kind == LocationResolved && l.Latitude == 0 && l.Longitude == 0
}

// Hint returns the best display text for fallback geocoding: the raw
// string before resolution, the display name after.
func (l Location) Hint() string {
	if l.Kind == LocationRaw {
		return l.Raw
	}
	return l.DisplayName
}

type structuredLocation struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	PostalCode  string  `json:"postal_code"`
}

// MarshalJSON emits the structured object for resolved locations and a
// bare string otherwise, matching the wire contract of the content layer.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Kind == LocationRaw {
		return json.Marshal(l.Raw)
	}
	return json.Marshal(structuredLocation{
		DisplayName: l.DisplayName,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		PostalCode:  l.PostalCode,
	})
}

// UnmarshalJSON accepts either a bare string or the structured object.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = RawLocation(raw)
		return nil
	}

	var s structuredLocation
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("location must be a string or a structured object: %w", err)
	}
	*l = NewResolvedLocation(s.DisplayName, s.Latitude, s.Longitude, s.PostalCode)
	return nil
}
