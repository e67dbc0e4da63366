package resolver

import (
	"context"
	"errors"

	"github.com/Sternrassler/vocab-enricher/pkg/cache"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// DefinitionResult is the winning definition fragment and its provider.
type DefinitionResult struct {
	Definitions  []string `json:"definitions"`
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	IPA          string   `json:"ipa,omitempty"`
	Etymology    string   `json:"etymology,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Antonyms     []string `json:"antonyms,omitempty"`
	// Source is the name of the provider that answered.
	Source string `json:"source"`
}

// Definitions returns the first definition result with at least one definition.
func (r *Resolver) Definitions(ctx context.Context, term string) (DefinitionResult, error) {
	key := cache.Key{Category: cache.CategoryDefinition, Term: term}.String()

	var cached DefinitionResult
	if r.store.GetJSON(ctx, key, &cached) && len(cached.Definitions) > 0 {
		return cached, nil
	}

	f, source, err := r.firstSuccess(ctx, provider.Definition, term)
	if err != nil {
		return DefinitionResult{}, err
	}

	result := DefinitionResult{
		Definitions:  f.Definitions,
		PartOfSpeech: f.PartOfSpeech,
		IPA:          f.IPA,
		Etymology:    f.Etymology,
		Examples:     f.Examples,
		Synonyms:     f.Synonyms,
		Antonyms:     f.Antonyms,
		Source:       source,
	}
	r.store.PutJSON(ctx, key, result, source, r.ttl)
	return result, nil
}

// Audio returns pronunciation candidates. By default the first provider with
// at least one recording wins; with collectAll every provider is asked and the
// candidates are concatenated in priority order, de-duplicated by URL.
// Each mode caches under its own key.
func (r *Resolver) Audio(ctx context.Context, term string, collectAll bool) ([]provider.AudioCandidate, error) {
	category := cache.CategoryAudio
	if collectAll {
		category = cache.CategoryAudioAll
	}
	key := cache.Key{Category: category, Term: term}.String()

	var cached []provider.AudioCandidate
	if r.store.GetJSON(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	if !collectAll {
		f, source, err := r.firstSuccess(ctx, provider.Audio, term)
		if err != nil {
			return nil, err
		}
		r.store.PutJSON(ctx, key, f.Audio, source, r.ttl)
		return f.Audio, nil
	}

	var (
		out    []provider.AudioCandidate
		errs   []error
		seen   = make(map[string]bool)
		source string
	)
	for _, d := range r.registry.Ordered(provider.Audio) {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		f, err := r.call(ctx, d.Provider, term)
		if err != nil {
			if !errors.Is(err, errSkipped) {
				errs = append(errs, err)
			}
			continue
		}
		if source == "" {
			source = d.Name()
		}
		for _, a := range f.Audio {
			if seen[a.URL] {
				continue
			}
			seen[a.URL] = true
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, noResult(provider.Audio, errs)
	}

	r.store.PutJSON(ctx, key, out, source, r.ttl)
	return out, nil
}

// Translation translates text with the first configured translation provider.
// On failure it returns the original text together with the error, which
// callers record as non-fatal.
func (r *Resolver) Translation(ctx context.Context, text string) (string, error) {
	key := cache.Key{Category: cache.CategoryTranslation, Term: text}.String()

	var cached string
	if r.store.GetJSON(ctx, key, &cached) && cached != "" {
		return cached, nil
	}

	var errs []error
	for _, d := range r.registry.Ordered(provider.Translation) {
		f, err := r.call(ctx, d.Provider, text)
		if errors.Is(err, errSkipped) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			break
		}
		r.store.PutJSON(ctx, key, f.Translation, d.Name(), r.ttl)
		return f.Translation, nil
	}
	return text, noResult(provider.Translation, errs)
}

// Images returns illustration URLs from the first provider that has any.
func (r *Resolver) Images(ctx context.Context, term string) ([]string, error) {
	key := cache.Key{Category: cache.CategoryImage, Term: term}.String()

	var cached []string
	if r.store.GetJSON(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	f, source, err := r.firstSuccess(ctx, provider.Image, term)
	if err != nil {
		return nil, err
	}
	r.store.PutJSON(ctx, key, f.Images, source, r.ttl)
	return f.Images, nil
}
