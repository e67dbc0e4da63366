package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// FreeDictionaryBaseURL is the dictionaryapi.dev English endpoint.
const FreeDictionaryBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"

type freeEntry struct {
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string   `json:"definition"`
			Example    string   `json:"example"`
			Synonyms   []string `json:"synonyms"`
			Antonyms   []string `json:"antonyms"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// FreeDictionary serves definitions from the keyless Free Dictionary API.
type FreeDictionary struct {
	baseURL   string
	transport *Transport
}

// NewFreeDictionary creates the Free Dictionary provider. An empty baseURL
// selects FreeDictionaryBaseURL.
func NewFreeDictionary(baseURL string, transport *Transport) *FreeDictionary {
	if baseURL == "" {
		baseURL = FreeDictionaryBaseURL
	}
	return &FreeDictionary{baseURL: baseURL, transport: transport}
}

func (p *FreeDictionary) Name() string                { return "free" }
func (p *FreeDictionary) Category() provider.Category { return provider.Definition }
func (p *FreeDictionary) Configured() bool            { return true }

func (p *FreeDictionary) Invoke(ctx context.Context, term string) ([]byte, error) {
	return p.transport.get(ctx, request{
		provider: p.Name(),
		url:      p.baseURL + url.PathEscape(term),
	})
}

// Normalize reads the first definition of the first meaning.
func (p *FreeDictionary) Normalize(raw []byte) (provider.Fragment, error) {
	var entries []freeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}
	if len(entries) == 0 || len(entries[0].Meanings) == 0 || len(entries[0].Meanings[0].Definitions) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no definitions"))
	}

	entry := entries[0]
	meaning := entry.Meanings[0]
	def := meaning.Definitions[0]
	if def.Definition == "" {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("empty definition"))
	}

	f := provider.Fragment{
		Definitions:  []string{def.Definition},
		IPA:          entry.Phonetic,
		PartOfSpeech: meaning.PartOfSpeech,
		Synonyms:     provider.Truncate(def.Synonyms, provider.MaxSynonyms),
		Antonyms:     provider.Truncate(def.Antonyms, provider.MaxAntonyms),
	}
	if f.IPA == "" && len(entry.Phonetics) > 0 {
		f.IPA = entry.Phonetics[0].Text
	}
	if def.Example != "" {
		f.Examples = []string{def.Example}
	}
	return f, nil
}
