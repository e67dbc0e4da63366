package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// MyMemoryBaseURL is the MyMemory translation endpoint.
const MyMemoryBaseURL = "https://api.mymemory.translated.net/get"

// DefaultTargetLanguage is the translation target when none is configured.
const DefaultTargetLanguage = "vi"

// MyMemoryConfig selects the endpoint and language pair.
type MyMemoryConfig struct {
	BaseURL string
	// Target is the ISO 639-1 target language; the source is always English.
	Target string
	// Email raises the anonymous daily quota when set.
	Email string
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	// ResponseStatus is a number on success and sometimes a string on errors.
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

// MyMemory translates English text.
type MyMemory struct {
	cfg       MyMemoryConfig
	transport *Transport
}

// NewMyMemory creates the MyMemory translation provider.
func NewMyMemory(cfg MyMemoryConfig, transport *Transport) *MyMemory {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MyMemoryBaseURL
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTargetLanguage
	}
	return &MyMemory{cfg: cfg, transport: transport}
}

func (p *MyMemory) Name() string                { return "mymemory" }
func (p *MyMemory) Category() provider.Category { return provider.Translation }
func (p *MyMemory) Configured() bool            { return true }

func (p *MyMemory) Invoke(ctx context.Context, text string) ([]byte, error) {
	query := map[string]string{
		"q":        text,
		"langpair": "en|" + p.cfg.Target,
	}
	if p.cfg.Email != "" {
		query["de"] = p.cfg.Email
	}
	return p.transport.get(ctx, request{
		provider: p.Name(),
		url:      p.cfg.BaseURL,
		query:    query,
	})
}

// Normalize returns the translated text. MyMemory reports quota and input
// errors inside a 200 response, so the embedded status is checked too.
func (p *MyMemory) Normalize(raw []byte) (provider.Fragment, error) {
	var resp myMemoryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}

	status := strings.Trim(string(resp.ResponseStatus), `"`)
	if status != "" && status != "200" {
		code, _ := strconv.Atoi(status)
		if code == http.StatusTooManyRequests {
			return provider.Fragment{}, apierr.RateLimited(p.Name(), defaultRetryAfter)
		}
		return provider.Fragment{}, apierr.Provider(p.Name(), code, resp.ResponseDetails, nil)
	}

	text := strings.TrimSpace(resp.ResponseData.TranslatedText)
	if text == "" {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("empty translation"))
	}
	return provider.Fragment{Translation: text}, nil
}
