// Package extract tags place mentions in article text and scores them.
// It is a frequency heuristic, not a general NER model: ambiguous names
// ("Washington", "Georgia") are ranked only by mention counts and the
// gazetteer bonus.
package extract

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/newsglobe/backend/internal/gazetteer"
	"github.com/newsglobe/backend/internal/models"
)

var (
	urlRegex   = regexp.MustCompile(`https?://[^\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
	// "City, ST" with an explicit two-letter state code.
	cityStateRegex = regexp.MustCompile(`\b([A-Z][A-Za-z.'-]+(?: [A-Z][A-Za-z.'-]+)*), ([A-Z]{2})\b`)
)

// Non-geographic words the mention tagger must never emit.
var stopList = map[string]struct{}{
	"here": {}, "there": {}, "online": {}, "world": {}, "global": {},
	"internet": {}, "web": {}, "earth": {}, "home": {}, "nationwide": {},
	"everywhere": {}, "local": {}, "abroad": {},
}

// Lowercase function words allowed inside a multi-word place name.
var funcWords = map[string]struct{}{
	"of": {}, "the": {}, "de": {}, "du": {}, "von": {}, "van": {},
}

// Short names conventionally written in full caps.
var upperNames = map[string]struct{}{
	"usa": {}, "us": {}, "u.s.": {}, "uk": {}, "dc": {}, "d.c.": {},
	"uae": {}, "nyc": {}, "la": {}, "sf": {}, "okc": {}, "slc": {}, "atl": {},
}

// Weights are the tunable confidence constants. The defaults mirror the
// historic heuristic; nothing here claims they are optimal.
type Weights struct {
	Mention   float64 // share of total mentions
	Country   float64 // bonus for a known country name
	LengthCap float64 // cap on the name-length score (len/20)
	Domestic  float64 // bonus for a gazetteer hit
}

// DefaultWeights returns the historic 0.7/0.1/0.2/0.3 constants.
func DefaultWeights() Weights {
	return Weights{Mention: 0.7, Country: 0.1, LengthCap: 0.2, Domestic: 0.3}
}

// Extractor tags and scores place mentions. Safe for concurrent use:
// the gazetteer is read-only and every call builds fresh state.
type Extractor struct {
	gaz     *gazetteer.Gazetteer
	weights Weights
}

// New builds an extractor with default weights.
func New(gaz *gazetteer.Gazetteer) *Extractor {
	return NewWithWeights(gaz, DefaultWeights())
}

// NewWithWeights builds an extractor with custom scoring constants.
func NewWithWeights(gaz *gazetteer.Gazetteer, w Weights) *Extractor {
	return &Extractor{gaz: gaz, weights: w}
}

// Extract returns candidate locations ordered domestic-first, then by
// confidence descending. Empty or whitespace input yields an empty
// slice; malformed input never errors.
func (e *Extractor) Extract(text string) []models.Candidate {
	mentions := e.tally(text)
	if len(mentions) == 0 {
		return nil
	}

	total := 0
	for _, n := range mentions {
		total += n
	}

	out := make([]models.Candidate, 0, len(mentions))
	for name, count := range mentions {
		out = append(out, e.score(name, count, total))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Domestic != out[j].Domestic {
			return out[i].Domestic
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})

	return out
}

func (e *Extractor) score(name string, count, total int) models.Candidate {
	w := e.weights
	domestic := e.gaz.IsDomestic(name)

	conf := w.Mention * float64(count) / float64(total)
	if isKnownCountry(name) {
		conf += w.Country
	}
	conf += min(float64(len(name))/20, w.LengthCap)
	if domestic {
		conf += w.Domestic
	}
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}

	return models.Candidate{
		Name:       NormalizeDisplay(name),
		Mentions:   count,
		Confidence: conf,
		Domestic:   domestic,
	}
}

// tally counts mentions per lowercase-normalized place name.
func (e *Extractor) tally(text string) map[string]int {
	clean := html.UnescapeString(text)
	clean = urlRegex.ReplaceAllString(clean, " ")
	clean = whitespace.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	mentions := make(map[string]int)

	// "City, ST" pairs first; they are consumed so the bare city and the
	// state code do not get double-counted below.
	clean = cityStateRegex.ReplaceAllStringFunc(clean, func(m string) string {
		sub := cityStateRegex.FindStringSubmatch(m)
		name := strings.ToLower(sub[1] + ", " + sub[2])
		if e.accept(name) {
			mentions[name]++
			return " "
		}
		return m
	})

	for _, sentence := range splitSentences(clean) {
		for _, run := range capitalizedRuns(sentence) {
			name := strings.ToLower(strings.Join(run.words, " "))
			if !e.accept(name) {
				continue
			}
			if run.sentenceInitial && !e.known(name) {
				// A sentence-opening capital proves nothing; keep it
				// only when the word already names a known place.
				if len(run.words) == 1 {
					continue
				}
				rest := run.words[1:]
				for len(rest) > 0 {
					if _, fw := funcWords[strings.ToLower(rest[0])]; !fw {
						break
					}
					rest = rest[1:]
				}
				if name := strings.ToLower(strings.Join(rest, " ")); e.accept(name) {
					mentions[name]++
				}
				continue
			}
			mentions[name]++
		}
	}

	return mentions
}

func (e *Extractor) accept(name string) bool {
	if name == "" {
		return false
	}
	if _, stop := stopList[name]; stop {
		return false
	}
	if _, fw := funcWords[name]; fw {
		return false
	}
	if len(name) < 2 {
		return false
	}
	return true
}

// known reports whether the name is already an established place:
// gazetteer member or known country.
func (e *Extractor) known(name string) bool {
	return isKnownCountry(name) || e.gaz.IsDomestic(name)
}

type wordRun struct {
	words           []string
	sentenceInitial bool
}

// capitalizedRuns finds maximal runs of capitalized words, tolerating
// lowercase function words inside a run ("United States of America").
func capitalizedRuns(sentence string) []wordRun {
	tokens := strings.Fields(sentence)
	var runs []wordRun

	i := 0
	for i < len(tokens) {
		word, ok := placeWord(tokens[i])
		if !ok {
			i++
			continue
		}

		run := wordRun{words: []string{word}, sentenceInitial: i == 0}
		j := i + 1
		for j < len(tokens) {
			next, nok := placeWord(tokens[j])
			if nok {
				run.words = append(run.words, next)
				j++
				continue
			}
			// A function word continues the run only when another
			// capitalized word follows it.
			low := strings.ToLower(trimWord(tokens[j]))
			if _, fw := funcWords[low]; fw && j+1 < len(tokens) {
				if after, aok := placeWord(tokens[j+1]); aok {
					run.words = append(run.words, low, after)
					j += 2
					continue
				}
			}
			break
		}
		runs = append(runs, run)
		i = j
	}

	return runs
}

// placeWord accepts a token as part of a place name and strips trailing
// punctuation. All-caps tokens pass only when they are conventional
// short names, which filters acronyms like NASA or CEO.
func placeWord(token string) (string, bool) {
	w := trimWord(token)
	if len(w) < 2 {
		return "", false
	}
	runes := []rune(w)
	if !unicode.IsUpper(runes[0]) {
		return "", false
	}
	allUpper := true
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && r != '.' && r != '\'' && r != '-' {
			return "", false
		}
		if unicode.IsLower(r) {
			allUpper = false
		}
	}
	if allUpper {
		if _, ok := upperNames[strings.ToLower(w)]; !ok {
			return "", false
		}
	}
	return w, true
}

func trimWord(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '.'
	})
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ':', ';', '\n':
			return true
		}
		return false
	})
}

// NormalizeDisplay title-cases a normalized name, keeping function words
// lowercase unless they lead, and restoring conventional capitals such
// as state codes and USA.
func NormalizeDisplay(name string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, w := range words {
		bare := strings.TrimSuffix(w, ",")
		if _, up := upperNames[bare]; up || isStateCodeLike(bare, i, words) {
			words[i] = strings.ToUpper(bare) + w[len(bare):]
			continue
		}
		if _, fw := funcWords[bare]; fw && i > 0 {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// isStateCodeLike marks a trailing two-letter token that follows a comma
// so "dallas, tx" renders as "Dallas, TX".
func isStateCodeLike(w string, i int, words []string) bool {
	if len(w) != 2 || i == 0 || i != len(words)-1 {
		return false
	}
	return strings.HasSuffix(words[i-1], ",")
}
