package extract

import "strings"

// knownCountries backs the country bonus. Lowercase names including the
// common short forms that show up in headlines.
var knownCountries = map[string]struct{}{
	"united states": {}, "united states of america": {}, "usa": {}, "us": {},
	"u.s.": {}, "america": {},
	"afghanistan": {}, "argentina": {}, "australia": {}, "austria": {},
	"belgium": {}, "brazil": {}, "britain": {}, "canada": {}, "chile": {},
	"china": {}, "colombia": {}, "cuba": {}, "czech republic": {},
	"denmark": {}, "egypt": {}, "england": {}, "ethiopia": {}, "finland": {},
	"france": {}, "germany": {}, "greece": {}, "haiti": {}, "hungary": {},
	"india": {}, "indonesia": {}, "iran": {}, "iraq": {}, "ireland": {},
	"israel": {}, "italy": {}, "japan": {}, "jordan": {}, "kenya": {},
	"lebanon": {}, "libya": {}, "malaysia": {}, "mexico": {}, "morocco": {},
	"netherlands": {}, "new zealand": {}, "nigeria": {}, "north korea": {},
	"norway": {}, "pakistan": {}, "peru": {}, "philippines": {}, "poland": {},
	"portugal": {}, "qatar": {}, "russia": {}, "saudi arabia": {},
	"scotland": {}, "singapore": {}, "south africa": {}, "south korea": {},
	"spain": {}, "sweden": {}, "switzerland": {}, "syria": {}, "taiwan": {},
	"thailand": {}, "turkey": {}, "uae": {}, "uk": {}, "ukraine": {},
	"united kingdom": {}, "venezuela": {}, "vietnam": {},
}

func isKnownCountry(name string) bool {
	_, ok := knownCountries[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
