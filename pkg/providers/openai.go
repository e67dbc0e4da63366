package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// OpenAIConfig holds the chat completion settings for AI definitions.
type OpenAIConfig struct {
	APIKey string
	// Model defaults to gpt-4o-mini.
	Model string
	// BaseURL overrides the API root, e.g. for a compatible gateway.
	BaseURL string
}

const openAISystemPrompt = `You are an English lexicographer writing entries for language learners.
Answer with a single JSON object and nothing else, using exactly these keys:
"definitions" (array of up to 3 short definitions, most common sense first),
"part_of_speech" (string), "ipa" (US pronunciation in IPA), "etymology" (one sentence or ""),
"examples" (array of up to 3 natural example sentences), "synonyms" (array, up to 5),
"antonyms" (array, up to 5).`

type openAIEntry struct {
	Definitions  []string `json:"definitions"`
	PartOfSpeech string   `json:"part_of_speech"`
	IPA          string   `json:"ipa"`
	Etymology    string   `json:"etymology"`
	Examples     []string `json:"examples"`
	Synonyms     []string `json:"synonyms"`
	Antonyms     []string `json:"antonyms"`
}

// OpenAI generates definitions with a chat model. It is the last resort
// of the definition chain.
type OpenAI struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAI creates the AI definition provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (p *OpenAI) Name() string                { return "openai" }
func (p *OpenAI) Category() provider.Category { return provider.Definition }
func (p *OpenAI) Configured() bool            { return p.cfg.APIKey != "" }

// Invoke returns the model's JSON answer.
func (p *OpenAI) Invoke(ctx context.Context, term string) ([]byte, error) {
	if !p.Configured() {
		return nil, apierr.MissingKey(p.Name())
	}

	req := openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: openAISystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Word or phrase: %q", term),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
		MaxTokens:   500,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(ctx, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, apierr.InvalidResponse(p.Name(), fmt.Errorf("no response from OpenAI"))
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

func (p *OpenAI) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 0:
		return apierr.Provider(p.Name(), 0, "request failed", err)
	case status == http.StatusTooManyRequests:
		e := apierr.RateLimited(p.Name(), defaultRetryAfter)
		e.Status = status
		e.Err = err
		return e
	case status >= 500:
		return apierr.Provider(p.Name(), status, "provider down", err)
	case status == http.StatusNotFound:
		return apierr.Provider(p.Name(), status, "not found", err)
	default:
		return apierr.Provider(p.Name(), status, "unexpected status", err)
	}
}

func (p *OpenAI) Normalize(raw []byte) (provider.Fragment, error) {
	content := strings.TrimSpace(string(raw))
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var entry openAIEntry
	if err := json.Unmarshal([]byte(content), &entry); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}
	if len(entry.Definitions) == 0 {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no definitions"))
	}

	return provider.Fragment{
		Definitions:  entry.Definitions,
		PartOfSpeech: entry.PartOfSpeech,
		IPA:          entry.IPA,
		Etymology:    entry.Etymology,
		Examples:     provider.Truncate(entry.Examples, provider.MaxExamples),
		Synonyms:     provider.Truncate(entry.Synonyms, provider.MaxSynonyms),
		Antonyms:     provider.Truncate(entry.Antonyms, provider.MaxAntonyms),
	}, nil
}
