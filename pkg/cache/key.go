package cache

import (
	"strings"
)

// Category is the key prefix of a cached result kind.
type Category string

const (
	CategoryDefinition  Category = "def"
	CategoryAudio       Category = "audio"
	CategoryAudioAll    Category = "audio_all"
	CategoryTranslation Category = "trans"
	CategoryImage       Category = "img"
	CategoryEnriched    Category = "enriched"
)

// Key identifies a cached result.
type Key struct {
	Category Category
	Term     string
}

// String generates the cache key string.
// Format: <category>_<term>, with the term trimmed and lowercased.
//
// Example:
//
//	def_run
func (k Key) String() string {
	return string(k.Category) + "_" + NormalizeTerm(k.Term)
}

// NormalizeTerm trims surrounding whitespace and lowercases the term.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
