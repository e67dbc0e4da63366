// Package enrichment assembles an enriched vocabulary record for a term by
// resolving every data category independently and caching the whole record.
package enrichment

import (
	"time"

	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// Record categories used in CategoryError.
const (
	CategoryGeneral      = "general"
	CategoryDefinition   = "definition"
	CategoryAudio        = "audio"
	CategoryTranslation  = "translation"
	CategoryCollocations = "collocations"
	CategoryImages       = "images"
)

// CategoryError records a non-fatal failure of one category.
type CategoryError struct {
	Category string `json:"category" yaml:"category"`
	Message  string `json:"message" yaml:"message"`
}

// Record is the enriched view of one term. Categories that failed leave their
// fields empty and add an entry to Errors.
type Record struct {
	Term          string                    `json:"term" yaml:"term"`
	Definitions   []string                  `json:"definitions" yaml:"definitions"`
	PartOfSpeech  string                    `json:"part_of_speech" yaml:"part_of_speech"`
	IPA           string                    `json:"ipa" yaml:"ipa"`
	Etymology     string                    `json:"etymology" yaml:"etymology"`
	Examples      []string                  `json:"examples" yaml:"examples"`
	Synonyms      []string                  `json:"synonyms" yaml:"synonyms"`
	Antonyms      []string                  `json:"antonyms" yaml:"antonyms"`
	Audio         []provider.AudioCandidate `json:"audio" yaml:"audio"`
	Translation   string                    `json:"translation" yaml:"translation"`
	Collocations  []string                  `json:"collocations" yaml:"collocations"`
	Images        []string                  `json:"images" yaml:"images"`
	SourceQuality string                    `json:"source_quality" yaml:"source_quality"`
	EnrichedAt    time.Time                 `json:"enriched_at" yaml:"enriched_at"`
	Errors        []CategoryError           `json:"errors" yaml:"errors"`
}

func newRecord(term string, now time.Time) Record {
	return Record{
		Term:         term,
		Definitions:  []string{},
		Examples:     []string{},
		Synonyms:     []string{},
		Antonyms:     []string{},
		Audio:        []provider.AudioCandidate{},
		Collocations: []string{},
		Images:       []string{},
		EnrichedAt:   now,
		Errors:       []CategoryError{},
	}
}

// HasErrors reports whether any category failed.
func (r Record) HasErrors() bool {
	return len(r.Errors) > 0
}

// Failed reports whether category c recorded an error.
func (r Record) Failed(c string) bool {
	for _, e := range r.Errors {
		if e.Category == c {
			return true
		}
	}
	return false
}

// Context carries the optional capture context of a term.
type Context struct {
	Sentence string `json:"sentence,omitempty"`
}
