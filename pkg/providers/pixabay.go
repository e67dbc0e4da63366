package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// PixabayBaseURL is the Pixabay image search endpoint.
const PixabayBaseURL = "https://pixabay.com/api/"

// MaxImages caps the illustrations kept per term. Pixabay's minimum page size is 3.
const MaxImages = 3

// PixabayConfig holds the Pixabay key.
type PixabayConfig struct {
	APIKey  string
	BaseURL string
}

type pixabayResponse struct {
	TotalHits int `json:"totalHits"`
	Hits      []struct {
		WebformatURL string `json:"webformatURL"`
	} `json:"hits"`
}

// Pixabay serves illustration images.
type Pixabay struct {
	cfg       PixabayConfig
	transport *Transport
}

// NewPixabay creates the Pixabay image provider.
func NewPixabay(cfg PixabayConfig, transport *Transport) *Pixabay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PixabayBaseURL
	}
	return &Pixabay{cfg: cfg, transport: transport}
}

func (p *Pixabay) Name() string                { return "pixabay" }
func (p *Pixabay) Category() provider.Category { return provider.Image }
func (p *Pixabay) Configured() bool            { return p.cfg.APIKey != "" }

func (p *Pixabay) Invoke(ctx context.Context, term string) ([]byte, error) {
	if !p.Configured() {
		return nil, apierr.MissingKey(p.Name())
	}
	return p.transport.get(ctx, request{
		provider: p.Name(),
		url:      p.cfg.BaseURL,
		query: map[string]string{
			"key":        p.cfg.APIKey,
			"q":          term,
			"lang":       "en",
			"image_type": "photo",
			"safesearch": "true",
			"per_page":   fmt.Sprintf("%d", MaxImages),
		},
	})
}

func (p *Pixabay) Normalize(raw []byte) (provider.Fragment, error) {
	var resp pixabayResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}

	var f provider.Fragment
	for _, hit := range resp.Hits {
		if hit.WebformatURL != "" && len(f.Images) < MaxImages {
			f.Images = append(f.Images, hit.WebformatURL)
		}
	}
	if len(f.Images) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no images"))
	}
	return f, nil
}
