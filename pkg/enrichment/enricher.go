package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/cache"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
	"github.com/Sternrassler/vocab-enricher/pkg/resolver"
)

// Prometheus metrics for enrichment.
var (
	enrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_enrichments_total",
		Help: "Total enrichments by result (cached, complete, partial, failed)",
	}, []string{"result"})

	categoryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocab_enrichment_category_failures_total",
		Help: "Total category failures recorded in enriched records",
	}, []string{"category"})
)

// Resolver resolves the individual data categories.
type Resolver interface {
	Definitions(ctx context.Context, term string) (resolver.DefinitionResult, error)
	Audio(ctx context.Context, term string, collectAll bool) ([]provider.AudioCandidate, error)
	Translation(ctx context.Context, text string) (string, error)
	Images(ctx context.Context, term string) ([]string, error)
}

// Options tunes what Enrich fetches.
type Options struct {
	// CollectAllAudio asks every audio provider instead of stopping at the first.
	CollectAllAudio bool

	// FetchImages enables the image category.
	FetchImages bool

	// TTL is the lifetime of cached records.
	TTL time.Duration
}

// DefaultOptions returns the default enrichment options.
func DefaultOptions() Options {
	return Options{TTL: cache.DefaultTTL}
}

// Enricher orchestrates the per-category resolution of a term.
type Enricher struct {
	resolver Resolver
	store    *cache.Store
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates an enricher.
func New(r Resolver, store *cache.Store, opts Options, logger zerolog.Logger) *Enricher {
	if r == nil || store == nil {
		panic("enrichment: resolver and store are required")
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	return &Enricher{
		resolver: r,
		store:    store,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source for EnrichedAt.
func (e *Enricher) SetClock(now func() time.Time) {
	e.now = now
}

// Enrich returns the enriched record for term. Only invalid input produces an
// error; every other failure is recorded in Record.Errors.
//
// A failure before any category starts, such as a cancelled context or a
// panicking cache, yields an empty record with a single general error.
// A cached record is returned unchanged. Otherwise definitions, audio,
// translation, collocations and (if enabled) images are resolved in that
// order and the record is cached, unless every attempted category failed.
func (e *Enricher) Enrich(ctx context.Context, term string, c Context) (Record, error) {
	normalized, err := ValidateTerm(term)
	if err != nil {
		return Record{}, err
	}
	sentence, err := ValidateSentence(c.Sentence)
	if err != nil {
		return Record{}, err
	}

	logger := e.logger.With().Str("term", normalized).Logger()
	key := cache.Key{Category: cache.CategoryEnriched, Term: normalized}.String()

	rec := newRecord(normalized, e.now())

	var cached Record
	hit := false
	e.step(ctx, &rec, CategoryGeneral, func() error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("enrichment not started: %w", err)
		}
		hit = e.store.GetJSON(ctx, key, &cached)
		return nil
	})
	if rec.HasErrors() {
		enrichmentsTotal.WithLabelValues("failed").Inc()
		return rec, nil
	}
	if hit {
		enrichmentsTotal.WithLabelValues("cached").Inc()
		logger.Debug().Msg("Using cached enrichment")
		return cached, nil
	}

	attempted := 0

	attempted++
	e.step(ctx, &rec, CategoryDefinition, func() error {
		def, err := e.resolver.Definitions(ctx, normalized)
		if err != nil {
			return err
		}
		rec.Definitions = def.Definitions
		rec.PartOfSpeech = def.PartOfSpeech
		rec.IPA = def.IPA
		rec.Etymology = def.Etymology
		rec.Examples = nonNil(def.Examples)
		rec.Synonyms = nonNil(def.Synonyms)
		rec.Antonyms = nonNil(def.Antonyms)
		rec.SourceQuality = def.Source
		return nil
	})

	attempted++
	e.step(ctx, &rec, CategoryAudio, func() error {
		audio, err := e.resolver.Audio(ctx, normalized, e.opts.CollectAllAudio)
		if err != nil {
			return err
		}
		rec.Audio = audio
		return nil
	})

	attempted++
	e.step(ctx, &rec, CategoryTranslation, func() error {
		// A failed translation still carries the original text.
		translation, err := e.resolver.Translation(ctx, normalized)
		rec.Translation = translation
		return err
	})

	if sentence != "" {
		e.step(ctx, &rec, CategoryCollocations, func() error {
			rec.Collocations = Collocations(normalized, sentence)
			return nil
		})
	}

	if e.opts.FetchImages {
		attempted++
		e.step(ctx, &rec, CategoryImages, func() error {
			images, err := e.resolver.Images(ctx, normalized)
			if err != nil {
				return err
			}
			rec.Images = images
			return nil
		})
	}

	failed := len(rec.Errors)
	switch {
	case failed == 0:
		enrichmentsTotal.WithLabelValues("complete").Inc()
	case failed >= attempted:
		enrichmentsTotal.WithLabelValues("failed").Inc()
		logger.Warn().Int("errors", failed).Msg("Every category failed, record not cached")
		return rec, nil
	default:
		enrichmentsTotal.WithLabelValues("partial").Inc()
	}

	e.store.PutJSON(ctx, key, rec, rec.SourceQuality, e.opts.TTL)
	logger.Debug().
		Str("source_quality", rec.SourceQuality).
		Int("errors", failed).
		Msg("Enrichment complete")
	return rec, nil
}

// step runs one category, recording its error or panic on rec.
func (e *Enricher) step(ctx context.Context, rec *Record, category string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	categoryFailuresTotal.WithLabelValues(category).Inc()
	e.logger.Warn().
		Err(err).
		Str("term", rec.Term).
		Str("category", category).
		Bool("cancelled", ctx.Err() != nil).
		Msg("Enrichment category failed")
	rec.Errors = append(rec.Errors, CategoryError{Category: category, Message: err.Error()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
