// Package textfilter softens profanity in provider narration for family
// content ratings.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps each filtered word to the family-friendly text that
// replaces it.
var replacements = map[string]string{
	"fuck":         "fudge",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"cock":         "[censored]",
	"dick":         "jerk",
	"pussy":        "[censored]",
	"tits":         "[censored]",
	"boobs":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"nigger":       "[censored]",
	"nigga":        "[censored]",
	"spic":         "[censored]",
	"chink":        "[censored]",
	"kike":         "[censored]",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"jesus christ": "jeez",
	"christ":       "crikey",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// ProfanityFilter replaces profanity, including simple plurals, while
// keeping the casing of the original word. A nil *ProfanityFilter passes
// text through unchanged.
type ProfanityFilter struct {
	rules []rule
}

// NewProfanityFilter compiles the word list. Longer phrases are matched
// first so "jesus christ" wins over "christ".
func NewProfanityFilter() *ProfanityFilter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	pf := &ProfanityFilter{rules: make([]rule, 0, len(words))}
	for _, w := range words {
		pf.rules = append(pf.rules, rule{
			pattern:     regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(w) + `)(s?)\b`),
			replacement: replacements[w],
		})
	}
	return pf
}

// ForRating returns a filter for ratings that require one, or nil.
func ForRating(rating string) *ProfanityFilter {
	if !ShouldFilterContent(rating) {
		return nil
	}
	return NewProfanityFilter()
}

// FilterText replaces profanity in text with family-friendly alternatives.
func (pf *ProfanityFilter) FilterText(text string) string {
	if pf == nil || text == "" {
		return text
	}
	for _, r := range pf.rules {
		text = r.pattern.ReplaceAllStringFunc(text, func(match string) string {
			sub := r.pattern.FindStringSubmatch(match)
			return preserveCase(sub[1], r.replacement) + sub[2]
		})
	}
	return text
}

// ContainsProfanity reports whether any filtered word appears in text.
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	if pf == nil {
		return false
	}
	for _, r := range pf.rules {
		if r.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase applies the case pattern of original to replacement.
func preserveCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	// mixed case: copy casing position by position
	orig := []rune(original)
	out := make([]rune, 0, len(replacement))
	for i, r := range []rune(replacement) {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out = append(out, unicode.ToUpper(r))
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// ShouldFilterContent reports whether a content rating calls for filtering.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}
