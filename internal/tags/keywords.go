package tags

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 5

// vocabulary is the fixed set of course-domain terms matched against text
// when the external tag service is unavailable.
var vocabulary = []string{
	"algorithm", "algebra", "calculus", "geometry", "statistics", "probability",
	"equation", "matrix", "derivative", "integral",
	"physics", "mechanics", "thermodynamics", "electricity", "magnetism", "optics", "quantum",
	"chemistry", "organic", "molecule", "reaction", "periodic",
	"biology", "genetics", "evolution", "cell", "anatomy", "ecosystem",
	"history", "geography", "economics", "psychology", "philosophy",
	"grammar", "literature", "essay", "vocabulary",
	"programming", "database", "network", "compiler", "recursion", "encryption",
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]+`)

// stopwords are trivial words excluded from the longest-words fallback.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "along": {}, "before": {}, "being": {},
	"between": {}, "could": {}, "describe": {}, "does": {}, "explain": {},
	"following": {}, "from": {}, "have": {}, "should": {}, "their": {},
	"there": {}, "these": {}, "this": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "with": {}, "would": {}, "your": {},
}

// Keywords extracts tags locally: vocabulary terms found in the text first,
// then the longest non-trivial words as a last resort. Tags are lowercase
// and capped at five, mirroring the external service's contract.
func Keywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	var out []string
	seen := make(map[string]struct{})
	for _, term := range vocabulary {
		if strings.Contains(cleaned, term) {
			if _, dup := seen[term]; !dup {
				seen[term] = struct{}{}
				out = append(out, term)
			}
		}
		if len(out) == maxKeywords {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	// no vocabulary hit: fall back to the 3 longest distinct words
	var words []string
	wordSeen := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 3 {
			continue
		}
		if _, trivial := stopwords[w]; trivial {
			continue
		}
		if _, dup := wordSeen[w]; dup {
			continue
		}
		wordSeen[w] = struct{}{}
		words = append(words, w)
	}
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	if len(words) > 3 {
		words = words[:3]
	}
	return words
}
