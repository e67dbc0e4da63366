// Package provider defines the contract every upstream data source implements
// and the registry that orders sources per category.
package provider

import (
	"context"
)

// Category is the kind of data a provider contributes.
type Category string

const (
	Definition  Category = "definition"
	Audio       Category = "audio"
	Translation Category = "translation"
	Image       Category = "image"
)

// Categories lists every category in resolution order.
var Categories = []Category{Definition, Audio, Translation, Image}

// Provider is one upstream data source.
type Provider interface {
	// Name identifies the provider in priorities, logs, metrics and records.
	Name() string

	// Category is the data category the provider serves.
	Category() Category

	// Configured reports whether the provider has everything it needs
	// (e.g. API keys). Unconfigured providers are skipped.
	Configured() bool

	// Invoke performs the upstream call and returns the raw response body.
	Invoke(ctx context.Context, term string) ([]byte, error)

	// Normalize converts a raw response into a fragment. An empty fragment
	// for the provider's category is an error.
	Normalize(raw []byte) (Fragment, error)
}

// AudioCandidate is one pronunciation recording.
type AudioCandidate struct {
	URL      string `json:"url" yaml:"url"`
	Accent   string `json:"accent" yaml:"accent"`
	Provider string `json:"provider" yaml:"provider"`
	Quality  string `json:"quality" yaml:"quality"`
}

// Caps applied to provider output.
const (
	MaxExamples   = 3
	MaxSynonyms   = 5
	MaxAntonyms   = 5
	MaxAudioFiles = 3
)

// Audio quality tiers.
const (
	QualityProfessional = "professional"
	QualityNative       = "native"
	QualitySynthetic    = "synthetic"
)

// Fragment is the normalized, partial result of one provider call.
// Only the fields of the provider's category are populated.
type Fragment struct {
	Definitions  []string         `json:"definitions,omitempty"`
	PartOfSpeech string           `json:"part_of_speech,omitempty"`
	IPA          string           `json:"ipa,omitempty"`
	Etymology    string           `json:"etymology,omitempty"`
	Examples     []string         `json:"examples,omitempty"`
	Synonyms     []string         `json:"synonyms,omitempty"`
	Antonyms     []string         `json:"antonyms,omitempty"`
	Audio        []AudioCandidate `json:"audio,omitempty"`
	Translation  string           `json:"translation,omitempty"`
	Images       []string         `json:"images,omitempty"`
}

// Empty reports whether the fragment carries nothing for category c.
func (f Fragment) Empty(c Category) bool {
	switch c {
	case Definition:
		return len(f.Definitions) == 0
	case Audio:
		return len(f.Audio) == 0
	case Translation:
		return f.Translation == ""
	case Image:
		return len(f.Images) == 0
	default:
		return true
	}
}

// Truncate returns at most n leading elements of s.
func Truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
