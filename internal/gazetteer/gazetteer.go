// Package gazetteer validates and normalizes US place names against a
// static embedded dataset of states, cities, and common aliases. It is
// loaded once at process start and is read-only afterwards, so lookups
// are safe for concurrent use.
package gazetteer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed data.json
var rawData []byte

// Place is a normalized gazetteer entry. City entries carry coordinates
// and a representative postal code; bare state entries do not.
type Place struct {
	Name       string
	City       string
	State      string
	StateCode  string
	Latitude   float64
	Longitude  float64
	PostalCode string
}

// IsState reports whether the entry names a state without a city.
func (p Place) IsState() bool { return p.City == "" }

type dataset struct {
	States []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"states"`
	Cities []struct {
		Name   string  `json:"name"`
		State  string  `json:"state"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		Postal string  `json:"postal"`
	} `json:"cities"`
	Aliases map[string]string `json:"aliases"`
}

// Gazetteer holds the four lookup indexes. All keys are lowercase.
type Gazetteer struct {
	stateByName  map[string]Place
	stateByCode  map[string]Place
	cityByKey    map[string]Place // "city,st"
	aliasByName  map[string]string
	cityByPostal map[string]Place
}

// New parses the embedded dataset and builds the indexes.
func New() (*Gazetteer, error) {
	var d dataset
	if err := json.Unmarshal(rawData, &d); err != nil {
		return nil, fmt.Errorf("parse gazetteer dataset: %w", err)
	}

	g := &Gazetteer{
		stateByName:  make(map[string]Place, len(d.States)),
		stateByCode:  make(map[string]Place, len(d.States)),
		cityByKey:    make(map[string]Place, len(d.Cities)),
		aliasByName:  make(map[string]string, len(d.Aliases)),
		cityByPostal: make(map[string]Place, len(d.Cities)),
	}

	for _, s := range d.States {
		p := Place{Name: s.Name, State: s.Name, StateCode: s.Code}
		g.stateByName[strings.ToLower(s.Name)] = p
		g.stateByCode[strings.ToLower(s.Code)] = p
	}

	for _, c := range d.Cities {
		st, ok := g.stateByCode[strings.ToLower(c.State)]
		if !ok {
			return nil, fmt.Errorf("city %q references unknown state code %q", c.Name, c.State)
		}
		p := Place{
			Name:       c.Name + ", " + st.StateCode,
			City:       c.Name,
			State:      st.State,
			StateCode:  st.StateCode,
			Latitude:   c.Lat,
			Longitude:  c.Lon,
			PostalCode: c.Postal,
		}
		g.cityByKey[cityKey(c.Name, st.StateCode)] = p
		if c.Postal != "" {
			g.cityByPostal[c.Postal] = p
		}
	}

	for alias, target := range d.Aliases {
		g.aliasByName[strings.ToLower(alias)] = target
	}

	return g, nil
}

func cityKey(city, stateCode string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "," + strings.ToLower(strings.TrimSpace(stateCode))
}

// Validate resolves a free-text name to a normalized place. Resolution
// order: alias, exact city+state key, exact state name, "City, ST" /
// "City, State" cross-reference, bare city name.
func (g *Gazetteer) Validate(name string) (Place, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Place{}, false
	}

	if target, ok := g.aliasByName[n]; ok {
		// Aliases point at canonical "City, ST" or state names.
		return g.Validate(target)
	}

	if city, st, ok := splitCityState(n); ok {
		if p, found := g.cityByKey[cityKey(city, st)]; found {
			return p, true
		}
	}

	if p, ok := g.stateByName[n]; ok {
		return p, true
	}

	if city, st, ok := splitCityState(n); ok {
		// Unknown city in a known state still normalizes: the state
		// half is authoritative even without coordinates for the city.
		if sp, found := g.stateByCode[st]; found {
			return Place{
				Name:      titleWords(city) + ", " + sp.StateCode,
				City:      titleWords(city),
				State:     sp.State,
				StateCode: sp.StateCode,
			}, true
		}
		if sp, found := g.stateByName[st]; found {
			if p, cok := g.cityByKey[cityKey(city, sp.StateCode)]; cok {
				return p, true
			}
			return Place{
				Name:      titleWords(city) + ", " + sp.StateCode,
				City:      titleWords(city),
				State:     sp.State,
				StateCode: sp.StateCode,
			}, true
		}
		return Place{}, false
	}

	// Bare city name: match against the city portion of composite keys.
	if p, ok := g.cityByPartial(n); ok {
		return p, true
	}

	return Place{}, false
}

// IsDomestic reports whether the name resolves against any index.
func (g *Gazetteer) IsDomestic(name string) bool {
	_, ok := g.Validate(name)
	return ok
}

// LookupByPostalCode resolves a postal code against the city dataset.
func (g *Gazetteer) LookupByPostalCode(code string) (Place, bool) {
	p, ok := g.cityByPostal[strings.TrimSpace(code)]
	return p, ok
}

func (g *Gazetteer) cityByPartial(name string) (Place, bool) {
	// Exact city portion first, then prefix. Deterministic: the smallest
	// matching key wins so repeated calls agree.
	var (
		bestKey string
		best    Place
		found   bool
	)
	for key, p := range g.cityByKey {
		city := key[:strings.IndexByte(key, ',')]
		if city != name {
			continue
		}
		if !found || key < bestKey {
			bestKey, best, found = key, p, true
		}
	}
	if found {
		return best, true
	}
	for key, p := range g.cityByKey {
		city := key[:strings.IndexByte(key, ',')]
		if !strings.HasPrefix(city, name) {
			continue
		}
		if !found || key < bestKey {
			bestKey, best, found = key, p, true
		}
	}
	return best, found
}

func splitCityState(n string) (city, state string, ok bool) {
	i := strings.LastIndexByte(n, ',')
	if i <= 0 || i == len(n)-1 {
		return "", "", false
	}
	city = strings.TrimSpace(n[:i])
	state = strings.TrimSpace(n[i+1:])
	if city == "" || state == "" {
		return "", "", false
	}
	return city, state, true
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
