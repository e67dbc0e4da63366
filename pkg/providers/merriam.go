package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// MerriamWebsterBaseURL is the Collegiate Dictionary JSON endpoint.
const MerriamWebsterBaseURL = "https://www.dictionaryapi.com/api/v3/references/collegiate/json/"

// MerriamWebsterConfig holds the Collegiate Dictionary key.
type MerriamWebsterConfig struct {
	APIKey  string
	BaseURL string
}

type mwEntry struct {
	Shortdef []string `json:"shortdef"`
	Hwi      struct {
		Hw string `json:"hw"`
	} `json:"hwi"`
	Fl   string            `json:"fl"`
	Et   []json.RawMessage `json:"et"`
	Syns json.RawMessage   `json:"syns"`
	Ants json.RawMessage   `json:"ants"`
}

// MerriamWebster serves definitions from the Merriam-Webster Collegiate API.
type MerriamWebster struct {
	cfg       MerriamWebsterConfig
	transport *Transport
}

// NewMerriamWebster creates the Merriam-Webster definition provider.
func NewMerriamWebster(cfg MerriamWebsterConfig, transport *Transport) *MerriamWebster {
	return &MerriamWebster{cfg: cfg, transport: transport}
}

func (p *MerriamWebster) Name() string                { return "merriam-webster" }
func (p *MerriamWebster) Category() provider.Category { return provider.Definition }
func (p *MerriamWebster) Configured() bool            { return p.cfg.APIKey != "" }

func (p *MerriamWebster) Invoke(ctx context.Context, term string) ([]byte, error) {
	if !p.Configured() {
		return nil, apierr.MissingKey(p.Name())
	}
	base := p.cfg.BaseURL
	if base == "" {
		base = MerriamWebsterBaseURL
	}
	return p.transport.get(ctx, request{
		provider: p.Name(),
		url:      base + url.PathEscape(term),
		query:    map[string]string{"key": p.cfg.APIKey},
	})
}

// Normalize reads the first entry. A response of bare strings means the API
// only had spelling suggestions.
func (p *MerriamWebster) Normalize(raw []byte) (provider.Fragment, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}
	if len(entries) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no results"))
	}

	var suggestion string
	if json.Unmarshal(entries[0], &suggestion) == nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("suggestions only"))
	}

	var entry mwEntry
	if err := json.Unmarshal(entries[0], &entry); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}
	if len(entry.Shortdef) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no definitions"))
	}

	return provider.Fragment{
		Definitions:  entry.Shortdef,
		IPA:          strings.ReplaceAll(entry.Hwi.Hw, "*", "·"),
		PartOfSpeech: entry.Fl,
		Etymology:    mwEtymology(entry.Et),
		Synonyms:     provider.Truncate(firstList(entry.Syns), provider.MaxSynonyms),
		Antonyms:     provider.Truncate(firstList(entry.Ants), provider.MaxAntonyms),
	}, nil
}

// mwEtymology returns the text of the first ["text", "..."] pair.
func mwEtymology(et []json.RawMessage) string {
	if len(et) == 0 {
		return ""
	}
	var pair []string
	if err := json.Unmarshal(et[0], &pair); err != nil || len(pair) < 2 {
		return ""
	}
	return pair[1]
}

// firstList decodes the first list of a list of string lists, ignoring other shapes.
func firstList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var lists [][]string
	if err := json.Unmarshal(raw, &lists); err != nil || len(lists) == 0 {
		return nil
	}
	return lists[0]
}
