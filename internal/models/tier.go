package models

// Tier is the ordinal classification of an article's geographic relevance
// to the reader.
type Tier string

const (
	TierClose   Tier = "close"
	TierMedium  Tier = "medium"
	TierFar     Tier = "far"
	TierUnknown Tier = "unknown"
)

// Valid reports whether t is one of the four recognized tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierClose, TierMedium, TierFar, TierUnknown:
		return true
	}
	return false
}
