package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/cache"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
	"github.com/Sternrassler/vocab-enricher/pkg/ratelimit"
	"github.com/Sternrassler/vocab-enricher/pkg/retry"
)

// fakeProvider answers with a fixed fragment after failing with errs in order.
type fakeProvider struct {
	name       string
	category   provider.Category
	configured bool
	fragment   provider.Fragment
	errs       []error
	badPayload bool

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) Category() provider.Category { return f.category }
func (f *fakeProvider) Configured() bool            { return f.configured }

func (f *fakeProvider) Invoke(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	if f.badPayload {
		return []byte("<html>"), nil
	}
	return json.Marshal(f.fragment)
}

func (f *fakeProvider) Normalize(raw []byte) (provider.Fragment, error) {
	var out provider.Fragment
	if err := json.Unmarshal(raw, &out); err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(f.name, err)
	}
	return out, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failing(name string, c provider.Category, err error) *fakeProvider {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = err
	}
	return &fakeProvider{name: name, category: c, configured: true, errs: errs}
}

func serverError(name string) error {
	return apierr.Provider(name, http.StatusInternalServerError, "provider down", nil)
}

type fixture struct {
	registry *provider.Registry
	limiter  *ratelimit.Limiter
	store    *cache.Store
	backend  *cache.MemoryBackend
	resolver *Resolver
	delays   []time.Duration
}

func newFixture(t *testing.T, cfg Config, providers ...provider.Provider) *fixture {
	t.Helper()

	f := &fixture{
		registry: provider.NewRegistry(),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig(), zerolog.Nop()),
		backend:  cache.NewMemoryBackend(),
	}
	for _, p := range providers {
		require.NoError(t, f.registry.Register(p))
	}
	f.store = cache.NewStore(f.backend, zerolog.Nop())

	executor := retry.New(retry.Config{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       time.Second,
		AttemptTimeout: time.Second,
	}, zerolog.Nop())
	executor.SetSleep(func(_ context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	})

	f.resolver = New(f.registry, f.limiter, executor, f.store, cfg, zerolog.Nop())
	return f
}

func TestDefinitions_FallsBackInPriorityOrder(t *testing.T) {
	a := failing("a", provider.Definition, serverError("a"))
	b := &fakeProvider{name: "b", category: provider.Definition, configured: false,
		fragment: provider.Fragment{Definitions: []string{"from b"}}}
	c := &fakeProvider{name: "c", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"from c"}, PartOfSpeech: "verb"}}
	d := &fakeProvider{name: "d", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"from d"}}}

	f := newFixture(t, DefaultConfig(), a, b, c, d)

	result, err := f.resolver.Definitions(context.Background(), "run")
	require.NoError(t, err)

	assert.Equal(t, "c", result.Source)
	assert.Equal(t, []string{"from c"}, result.Definitions)
	assert.Equal(t, "verb", result.PartOfSpeech)
	assert.Equal(t, 3, a.Calls(), "a is retried up to MaxAttempts")
	assert.Equal(t, 0, b.Calls(), "unconfigured providers are never invoked")
	assert.Equal(t, 0, d.Calls(), "providers after the winner are not invoked")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, f.delays)
}

func TestDefinitions_CachedAfterSuccess(t *testing.T) {
	p := &fakeProvider{name: "a", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"x"}}}
	f := newFixture(t, DefaultConfig(), p)

	_, err := f.resolver.Definitions(context.Background(), "Run ")
	require.NoError(t, err)
	result, err := f.resolver.Definitions(context.Background(), "run")
	require.NoError(t, err)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, "a", result.Source)

	entry, err := f.backend.Load(context.Background(), "def_run")
	require.NoError(t, err)
	assert.Equal(t, "a", entry.Provider)
}

func TestDefinitions_AllFail(t *testing.T) {
	a := failing("a", provider.Definition, apierr.Provider("a", http.StatusNotFound, "not found", nil))
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true, badPayload: true}
	f := newFixture(t, DefaultConfig(), a, b)

	result, err := f.resolver.Definitions(context.Background(), "qwxz")
	require.Error(t, err)

	assert.Empty(t, result.Definitions)
	assert.ErrorIs(t, err, apierr.ErrNoResult)
	assert.ErrorIs(t, err, &apierr.Error{Code: apierr.CodeNoDefinition})
	assert.Equal(t, 1, a.Calls(), "not found is final")
	assert.Equal(t, 0, f.backend.Len(), "failures are not cached")
}

func TestDefinitions_NoProviders(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.resolver.Definitions(context.Background(), "run")
	assert.ErrorIs(t, err, apierr.ErrNoResult)
}

func TestDefinitions_EmptyFragmentIsFailure(t *testing.T) {
	a := &fakeProvider{name: "a", category: provider.Definition, configured: true,
		fragment: provider.Fragment{PartOfSpeech: "noun"}}
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"ok"}}}
	f := newFixture(t, DefaultConfig(), a, b)

	result, err := f.resolver.Definitions(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, "b", result.Source)
}

func TestDefinitions_PriorityOverride(t *testing.T) {
	a := &fakeProvider{name: "a", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"a"}}}
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"b"}}}
	f := newFixture(t, DefaultConfig(), a, b)
	require.NoError(t, f.registry.SetPriority(provider.Definition, []string{"b"}))

	result, err := f.resolver.Definitions(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, "b", result.Source)
	assert.Equal(t, 0, a.Calls())
}

func TestDefinitions_RateLimitedProviderIsSkipped(t *testing.T) {
	a := &fakeProvider{name: "a", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"a"}}}
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"b"}}}
	f := newFixture(t, DefaultConfig(), a, b)
	f.resolver.limiter = ratelimit.NewLimiter(ratelimit.Config{
		Default:   ratelimit.Policy{MaxRequests: 30, Window: time.Minute},
		Overrides: map[string]ratelimit.Policy{"a": {MaxRequests: 1, Window: time.Minute}},
	}, zerolog.Nop())

	first, err := f.resolver.Definitions(context.Background(), "one")
	require.NoError(t, err)
	second, err := f.resolver.Definitions(context.Background(), "two")
	require.NoError(t, err)

	assert.Equal(t, "a", first.Source)
	assert.Equal(t, "b", second.Source)
	assert.Equal(t, 1, a.Calls(), "a rejected call never reaches the provider")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	a := failing("a", provider.Definition, serverError("a"))
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"b"}}}

	cfg := DefaultConfig()
	cfg.Breaker = BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour}
	f := newFixture(t, cfg, a, b)

	for _, term := range []string{"one", "two", "three", "four"} {
		result, err := f.resolver.Definitions(context.Background(), term)
		require.NoError(t, err)
		assert.Equal(t, "b", result.Source)
	}

	assert.Equal(t, 6, a.Calls(), "two executions of three attempts, then the breaker is open")
}

func TestBreakerIgnoresFinalErrors(t *testing.T) {
	a := failing("a", provider.Definition, apierr.Provider("a", http.StatusNotFound, "not found", nil))
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"b"}}}

	cfg := DefaultConfig()
	cfg.Breaker = BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour}
	f := newFixture(t, cfg, a, b)

	for _, term := range []string{"one", "two", "three"} {
		_, err := f.resolver.Definitions(context.Background(), term)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, a.Calls())
}

func audioProvider(name string, urls ...string) *fakeProvider {
	p := &fakeProvider{name: name, category: provider.Audio, configured: true}
	for _, u := range urls {
		p.fragment.Audio = append(p.fragment.Audio, provider.AudioCandidate{URL: u, Provider: name})
	}
	return p
}

func TestAudio_FirstSuccess(t *testing.T) {
	a := audioProvider("a", "https://a/1.mp3")
	b := audioProvider("b", "https://b/1.mp3")
	f := newFixture(t, DefaultConfig(), a, b)

	audio, err := f.resolver.Audio(context.Background(), "run", false)
	require.NoError(t, err)
	require.Len(t, audio, 1)
	assert.Equal(t, "https://a/1.mp3", audio[0].URL)
	assert.Equal(t, 0, b.Calls())
}

func TestAudio_CollectAllDeduplicates(t *testing.T) {
	a := audioProvider("a", "https://x/1.mp3", "https://x/2.mp3")
	broken := failing("broken", provider.Audio, apierr.MissingKey("broken"))
	b := audioProvider("b", "https://x/2.mp3", "https://x/3.mp3")
	f := newFixture(t, DefaultConfig(), a, broken, b)

	audio, err := f.resolver.Audio(context.Background(), "run", true)
	require.NoError(t, err)

	urls := make([]string, len(audio))
	for i, c := range audio {
		urls[i] = c.URL
	}
	assert.Equal(t, []string{"https://x/1.mp3", "https://x/2.mp3", "https://x/3.mp3"}, urls)
	assert.Equal(t, "a", audio[1].Provider, "the first occurrence wins")
}

func TestAudio_CollectAllNothingFound(t *testing.T) {
	a := failing("a", provider.Audio, apierr.Provider("a", http.StatusNotFound, "not found", nil))
	f := newFixture(t, DefaultConfig(), a)

	_, err := f.resolver.Audio(context.Background(), "run", true)
	assert.ErrorIs(t, err, &apierr.Error{Code: apierr.CodeNoAudio})
}

func TestAudio_ModesCacheSeparately(t *testing.T) {
	a := audioProvider("a", "https://a/1.mp3")
	b := audioProvider("b", "https://b/1.mp3")
	f := newFixture(t, DefaultConfig(), a, b)

	first, err := f.resolver.Audio(context.Background(), "run", false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	all, err := f.resolver.Audio(context.Background(), "run", true)
	require.NoError(t, err)
	require.Len(t, all, 2, "a cached first-success entry must not hide collect-all results")
	assert.Equal(t, "https://b/1.mp3", all[1].URL)
	assert.Equal(t, 1, b.Calls())
}

func TestTranslation(t *testing.T) {
	p := &fakeProvider{name: "mt", category: provider.Translation, configured: true,
		fragment: provider.Fragment{Translation: "chạy"}}
	f := newFixture(t, DefaultConfig(), p)

	got, err := f.resolver.Translation(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, "chạy", got)
}

func TestTranslation_FailureReturnsOriginal(t *testing.T) {
	primary := failing("mt", provider.Translation, serverError("mt"))
	secondary := &fakeProvider{name: "other", category: provider.Translation, configured: true,
		fragment: provider.Fragment{Translation: "x"}}
	f := newFixture(t, DefaultConfig(), primary, secondary)

	got, err := f.resolver.Translation(context.Background(), "give up")
	require.Error(t, err)
	assert.Equal(t, "give up", got)
	assert.True(t, errors.Is(err, apierr.ErrNoResult))
	assert.Equal(t, 0, secondary.Calls(), "translation uses a single provider")
}

func TestImages(t *testing.T) {
	a := &fakeProvider{name: "pix", category: provider.Image, configured: false}
	b := &fakeProvider{name: "other", category: provider.Image, configured: true,
		fragment: provider.Fragment{Images: []string{"https://img/1.jpg"}}}
	f := newFixture(t, DefaultConfig(), a, b)

	images, err := f.resolver.Images(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.jpg"}, images)
}

func TestDefinitions_CancelledContextStopsChain(t *testing.T) {
	a := failing("a", provider.Definition, serverError("a"))
	b := &fakeProvider{name: "b", category: provider.Definition, configured: true,
		fragment: provider.Fragment{Definitions: []string{"b"}}}
	f := newFixture(t, DefaultConfig(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.resolver.Definitions(ctx, "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.Calls())
}
