package artist

import (
	"regexp"
	"strings"
)

// cleanupRule is one step of title cleanup. Rules run in order; each one
// strips a class of non-artist text. Keeping them as data makes the rule
// set testable on its own.
type cleanupRule struct {
	name    string
	re      *regexp.Regexp
	replace string
}

var cleanupRules = []cleanupRule{
	{"leading promo code", regexp.MustCompile(`^\s*[A-Z]{2,}[0-9]*\s*[:\-–|]\s*`), ""},
	{"parenthetical aside", regexp.MustCompile(`\s*\([^)]*\)`), " "},
	{"featuring tail", regexp.MustCompile(`(?i)\s+(feat\.?|featuring|ft\.?)\s+.*$`), ""},
	{"versus tail", regexp.MustCompile(`(?i)\s+vs\.?\s+.*$`), ""},
	{"guests tail", regexp.MustCompile(`(?i)\s+and\s+(special\s+)?guests?\b.*$`), ""},
	{"trailing year", regexp.MustCompile(`\s+(19|20)\d{2}\s*$`), ""},
	{"trailing punctuation", regexp.MustCompile(`[\s\-–—:;,.!|]+$`), ""},
}

// multiDelimiter matches the first point where a second artist begins.
// Everything after it belongs to support acts.
var multiDelimiter = regexp.MustCompile(`(?i)(,|\+|&|/|\s+b2b\s+|\s+x\s+)`)

// Extractor isolates the headliner from a free-text event title. The
// allow-list claims names the cleanup rules would mangle (artists whose
// names contain delimiters); the deny-list rejects venue branding and
// generic event words that survive cleanup.
type Extractor struct {
	allow map[string]string
	deny  map[string]bool
}

func NewExtractor(allow []string, deny []string) *Extractor {
	e := &Extractor{
		allow: make(map[string]string, len(allow)),
		deny:  make(map[string]bool, len(deny)),
	}
	for _, name := range allow {
		e.allow[Normalize(name)] = name
	}
	for _, phrase := range deny {
		e.deny[Normalize(phrase)] = true
	}
	return e
}

// DefaultExtractor carries the operational allow/deny lists. Both grow as
// promoters find new ways to format titles.
func DefaultExtractor() *Extractor {
	return NewExtractor(
		[]string{
			"AC/DC",
			"Tyler, The Creator",
			"Above & Beyond",
			"Florence + The Machine",
		},
		[]string{
			"live",
			"presents",
			"showcase",
			"open decks",
			"karaoke",
			"closing party",
			"opening party",
		},
	)
}

// Extract returns the headliner name from a raw event title, or "" when the
// title carries no usable artist.
func (e *Extractor) Extract(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ""
	}

	// Allow-listed names win before any cleanup touches the title.
	normTitle := Normalize(trimmed)
	for norm, canonical := range e.allow {
		if containsName(normTitle, norm) {
			return canonical
		}
	}

	cleaned := trimmed
	if loc := multiDelimiter.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[:loc[0]]
	}
	for _, rule := range cleanupRules {
		cleaned = rule.re.ReplaceAllString(cleaned, rule.replace)
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if cleaned == "" {
		cleaned = naiveSplit(trimmed)
	}

	// Deny-list only fires on the whole cleaned string, and only when the
	// allow-list did not already claim it.
	if e.deny[Normalize(cleaned)] {
		return ""
	}

	return cleaned
}

// naiveSplit is the fallback when cleanup eats the whole title: take the
// text before the first top-level delimiter, whitespace-trimmed.
func naiveSplit(title string) string {
	if loc := multiDelimiter.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	return strings.TrimSpace(title)
}

// containsName reports whether the normalized needle appears in the
// normalized haystack on word boundaries.
func containsName(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	padded := " " + haystack + " "
	return strings.Contains(padded, " "+needle+" ")
}
