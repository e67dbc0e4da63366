package enrichment

import (
	"strings"
)

// MaxCollocations is the most windows Collocations can produce.
const MaxCollocations = 4

// Collocations extracts the word windows around the first occurrence of term
// in sentence: "prev term", "term next", "prev2 prev term" and
// "term next next2", de-duplicated. The sentence is lowercased and split on
// whitespace; a term that does not appear as a whole token yields nothing.
func Collocations(term, sentence string) []string {
	term = strings.ToLower(term)
	words := strings.Fields(strings.ToLower(sentence))

	idx := -1
	for i, w := range words {
		if w == term {
			idx = i
			break
		}
	}
	if idx == -1 {
		return []string{}
	}

	candidates := make([]string, 0, MaxCollocations)
	if idx > 0 {
		candidates = append(candidates, words[idx-1]+" "+term)
	}
	if idx < len(words)-1 {
		candidates = append(candidates, term+" "+words[idx+1])
	}
	if idx > 1 {
		candidates = append(candidates, words[idx-2]+" "+words[idx-1]+" "+term)
	}
	if idx < len(words)-2 {
		candidates = append(candidates, term+" "+words[idx+1]+" "+words[idx+2])
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
