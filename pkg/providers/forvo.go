package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// ForvoBaseURL is the Forvo free API root.
const ForvoBaseURL = "https://apifree.forvo.com"

const forvoUSCountry = "United States"

// ForvoConfig holds the Forvo key and accent preference.
type ForvoConfig struct {
	APIKey  string
	BaseURL string
	// PreferUS keeps only recordings from United States speakers.
	PreferUS bool
}

type forvoItem struct {
	PathMP3          string `json:"pathmp3"`
	Country          string `json:"country"`
	Username         string `json:"username"`
	NumPositiveVotes int    `json:"num_positive_votes"`
}

type forvoResponse struct {
	Items []forvoItem `json:"items"`
}

// Forvo serves native-speaker recordings.
type Forvo struct {
	cfg       ForvoConfig
	transport *Transport
}

// NewForvo creates the Forvo audio provider.
func NewForvo(cfg ForvoConfig, transport *Transport) *Forvo {
	return &Forvo{cfg: cfg, transport: transport}
}

func (p *Forvo) Name() string                { return "forvo" }
func (p *Forvo) Category() provider.Category { return provider.Audio }
func (p *Forvo) Configured() bool            { return p.cfg.APIKey != "" }

func (p *Forvo) Invoke(ctx context.Context, term string) ([]byte, error) {
	if !p.Configured() {
		return nil, apierr.MissingKey(p.Name())
	}
	base := p.cfg.BaseURL
	if base == "" {
		base = ForvoBaseURL
	}
	return p.transport.get(ctx, request{
		provider: p.Name(),
		url: fmt.Sprintf("%s/key/%s/format/json/action/word-pronunciations/word/%s/language/en",
			base, url.PathEscape(p.cfg.APIKey), url.PathEscape(term)),
	})
}

// Normalize keeps the best-voted recordings, at most three.
func (p *Forvo) Normalize(raw []byte) (provider.Fragment, error) {
	var resp forvoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}

	items := make([]forvoItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.PathMP3 == "" {
			continue
		}
		if p.cfg.PreferUS && item.Country != forvoUSCountry {
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].NumPositiveVotes > items[j].NumPositiveVotes
	})

	var f provider.Fragment
	for _, item := range items {
		if len(f.Audio) == provider.MaxAudioFiles {
			break
		}
		accent := "uk"
		if item.Country == forvoUSCountry {
			accent = "us"
		}
		f.Audio = append(f.Audio, provider.AudioCandidate{
			URL:      item.PathMP3,
			Accent:   accent,
			Provider: p.Name(),
			Quality:  provider.QualityNative,
		})
	}
	if len(f.Audio) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no pronunciations"))
	}
	return f, nil
}
