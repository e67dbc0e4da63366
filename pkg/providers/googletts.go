package providers

import (
	"context"
	"net/url"

	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// GoogleTTSBaseURL is the synthetic speech endpoint.
const GoogleTTSBaseURL = "https://translate.google.com/translate_tts"

// GoogleTTS builds a synthetic pronunciation URL without any network call.
type GoogleTTS struct {
	baseURL string
}

// NewGoogleTTS creates the Google TTS audio provider.
func NewGoogleTTS() *GoogleTTS {
	return &GoogleTTS{baseURL: GoogleTTSBaseURL}
}

func (p *GoogleTTS) Name() string                { return "google-tts" }
func (p *GoogleTTS) Category() provider.Category { return provider.Audio }
func (p *GoogleTTS) Configured() bool            { return true }

// Invoke returns the speech URL for term.
func (p *GoogleTTS) Invoke(_ context.Context, term string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", term)
	q.Set("tl", "en")
	q.Set("client", "tw-ob")
	return []byte(p.baseURL + "?" + q.Encode()), nil
}

func (p *GoogleTTS) Normalize(raw []byte) (provider.Fragment, error) {
	return provider.Fragment{
		Audio: []provider.AudioCandidate{{
			URL:      string(raw),
			Accent:   "us",
			Provider: p.Name(),
			Quality:  provider.QualitySynthetic,
		}},
	}, nil
}
