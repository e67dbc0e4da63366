package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// OxfordBaseURL is the Oxford Dictionaries entries endpoint (US English).
const OxfordBaseURL = "https://od-api.oxforddictionaries.com/api/v2/entries/en-us/"

// OxfordConfig holds Oxford Dictionaries credentials.
type OxfordConfig struct {
	AppID   string
	AppKey  string
	BaseURL string
}

type oxfordResponse struct {
	Results []struct {
		LexicalEntries []struct {
			LexicalCategory struct {
				ID string `json:"id"`
			} `json:"lexicalCategory"`
			Entries []struct {
				Etymologies    []string `json:"etymologies"`
				Pronunciations []struct {
					PhoneticSpelling string `json:"phoneticSpelling"`
					AudioFile        string `json:"audioFile"`
				} `json:"pronunciations"`
				Senses []struct {
					Definitions []string     `json:"definitions"`
					Examples    []oxfordText `json:"examples"`
					Synonyms    []oxfordText `json:"synonyms"`
					Antonyms    []oxfordText `json:"antonyms"`
				} `json:"senses"`
			} `json:"entries"`
		} `json:"lexicalEntries"`
	} `json:"results"`
}

type oxfordText struct {
	Text string `json:"text"`
}

func texts(in []oxfordText, limit int) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t.Text != "" {
			out = append(out, t.Text)
		}
	}
	return provider.Truncate(out, limit)
}

// oxford shares the lookup between the definition and audio providers.
type oxford struct {
	cfg       OxfordConfig
	transport *Transport
}

func (o oxford) configured() bool {
	return o.cfg.AppID != "" && o.cfg.AppKey != ""
}

func (o oxford) invoke(ctx context.Context, name, term string) ([]byte, error) {
	if !o.configured() {
		return nil, apierr.MissingKey(name)
	}
	base := o.cfg.BaseURL
	if base == "" {
		base = OxfordBaseURL
	}
	return o.transport.get(ctx, request{
		provider: name,
		url:      base + url.PathEscape(term),
		headers: map[string]string{
			"app_id":  o.cfg.AppID,
			"app_key": o.cfg.AppKey,
		},
	})
}

func decodeOxford(name string, raw []byte) (*oxfordResponse, error) {
	var resp oxfordResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apierr.InvalidResponse(name, err)
	}
	if len(resp.Results) == 0 ||
		len(resp.Results[0].LexicalEntries) == 0 ||
		len(resp.Results[0].LexicalEntries[0].Entries) == 0 {
		return nil, apierr.InvalidResponse(name, fmt.Errorf("no lexical entries"))
	}
	return &resp, nil
}

// OxfordDictionary serves definitions from Oxford Dictionaries.
type OxfordDictionary struct {
	oxford
}

// NewOxfordDictionary creates the Oxford definition provider.
func NewOxfordDictionary(cfg OxfordConfig, transport *Transport) *OxfordDictionary {
	return &OxfordDictionary{oxford{cfg: cfg, transport: transport}}
}

func (p *OxfordDictionary) Name() string                { return "oxford" }
func (p *OxfordDictionary) Category() provider.Category { return provider.Definition }
func (p *OxfordDictionary) Configured() bool            { return p.configured() }

func (p *OxfordDictionary) Invoke(ctx context.Context, term string) ([]byte, error) {
	return p.invoke(ctx, p.Name(), term)
}

// Normalize reads the first sense of the first entry.
func (p *OxfordDictionary) Normalize(raw []byte) (provider.Fragment, error) {
	resp, err := decodeOxford(p.Name(), raw)
	if err != nil {
		return provider.Fragment{}, err
	}

	lexical := resp.Results[0].LexicalEntries[0]
	entry := lexical.Entries[0]
	if len(entry.Senses) == 0 || len(entry.Senses[0].Definitions) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no definitions"))
	}
	sense := entry.Senses[0]

	f := provider.Fragment{
		Definitions:  sense.Definitions,
		PartOfSpeech: lexical.LexicalCategory.ID,
		Examples:     texts(sense.Examples, provider.MaxExamples),
		Synonyms:     texts(sense.Synonyms, provider.MaxSynonyms),
		Antonyms:     texts(sense.Antonyms, provider.MaxAntonyms),
	}
	if len(entry.Pronunciations) > 0 {
		f.IPA = entry.Pronunciations[0].PhoneticSpelling
	}
	if len(entry.Etymologies) > 0 {
		f.Etymology = entry.Etymologies[0]
	}
	return f, nil
}

// OxfordAudio serves the professional US recording linked from an Oxford entry.
type OxfordAudio struct {
	oxford
}

// NewOxfordAudio creates the Oxford audio provider.
func NewOxfordAudio(cfg OxfordConfig, transport *Transport) *OxfordAudio {
	return &OxfordAudio{oxford{cfg: cfg, transport: transport}}
}

func (p *OxfordAudio) Name() string                { return "oxford" }
func (p *OxfordAudio) Category() provider.Category { return provider.Audio }
func (p *OxfordAudio) Configured() bool            { return p.configured() }

func (p *OxfordAudio) Invoke(ctx context.Context, term string) ([]byte, error) {
	return p.invoke(ctx, p.Name(), term)
}

func (p *OxfordAudio) Normalize(raw []byte) (provider.Fragment, error) {
	resp, err := decodeOxford(p.Name(), raw)
	if err != nil {
		return provider.Fragment{}, err
	}

	entry := resp.Results[0].LexicalEntries[0].Entries[0]
	if len(entry.Pronunciations) == 0 || entry.Pronunciations[0].AudioFile == "" {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no audio file"))
	}

	return provider.Fragment{
		Audio: []provider.AudioCandidate{{
			URL:      entry.Pronunciations[0].AudioFile,
			Accent:   "us",
			Provider: p.Name(),
			Quality:  provider.QualityProfessional,
		}},
	}, nil
}
