package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
)

type fakeEnricher struct {
	calls atomic.Int32
}

func (f *fakeEnricher) Enrich(_ context.Context, term string, c enrichment.Context) (enrichment.Record, error) {
	f.calls.Add(1)
	normalized, err := enrichment.ValidateTerm(term)
	if err != nil {
		return enrichment.Record{}, err
	}
	rec := enrichment.Record{
		Term:        normalized,
		Definitions: []string{"definition of " + normalized},
		Errors:      []enrichment.CategoryError{},
	}
	if c.Sentence != "" {
		rec.Examples = []string{c.Sentence}
	}
	return rec, nil
}

type fakePurger struct {
	purged int
	err    error
}

func (f *fakePurger) PurgeExpired(context.Context) (int, error) {
	return f.purged, f.err
}

func newTestServer(t *testing.T, purger Purger) (*Server, *fakeEnricher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if purger == nil {
		purger = &fakePurger{}
	}
	enricher := &fakeEnricher{}
	cfg := DefaultConfig()
	cfg.Batch = batch.Options{Concurrency: 3}
	cfg.Version = "test"
	return New(enricher, purger, cfg, zerolog.Nop()), enricher
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.NotEmpty(t, resp.Time)
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_Enrich(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   apierr.Code
		wantTerm   string
	}{
		{
			name:       "valid term",
			body:       EnrichRequest{Term: "Serendipity", Sentence: "Pure serendipity."},
			wantStatus: http.StatusOK,
			wantTerm:   "serendipity",
		},
		{
			name:       "missing term",
			body:       map[string]string{"sentence": "x"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierr.CodeMissingField,
		},
		{
			name:       "too short",
			body:       EnrichRequest{Term: "a"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierr.CodeWordTooShort,
		},
		{
			name:       "invalid characters",
			body:       EnrichRequest{Term: "caf3"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierr.CodeInvalidCharacters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			w := doJSON(t, s.Handler(), http.MethodPost, "/v1/enrich", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Code)
				assert.NotEmpty(t, resp.Error)
				return
			}
			var rec enrichment.Record
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
			assert.Equal(t, tt.wantTerm, rec.Term)
		})
	}
}

func TestServer_Batch(t *testing.T) {
	s, enricher := newTestServer(t, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/v1/batch", BatchRequest{
		Terms: []string{"apple", "x", "banana"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	assert.Equal(t, "apple", resp.Results[0].Term)
	assert.True(t, resp.Results[0].Success)
	require.NotNil(t, resp.Results[0].Data)
	assert.Equal(t, "apple", resp.Results[0].Data.Term)

	assert.Equal(t, "x", resp.Results[1].Term)
	assert.False(t, resp.Results[1].Success)
	assert.Contains(t, resp.Results[1].Error, "too short")

	assert.True(t, resp.Results[2].Success)
	assert.Equal(t, int32(3), enricher.calls.Load())
}

func TestServer_BatchTooLarge(t *testing.T) {
	s, enricher := newTestServer(t, nil)

	terms := strings.Fields("one two three four five six seven eight nine ten eleven")
	w := doJSON(t, s.Handler(), http.MethodPost, "/v1/batch", BatchRequest{Terms: terms})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds maximum of 10")
	assert.Zero(t, enricher.calls.Load())
}

func TestServer_BatchEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/v1/batch", BatchRequest{Terms: []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Purge(t *testing.T) {
	t.Run("reports purged count", func(t *testing.T) {
		s, _ := newTestServer(t, &fakePurger{purged: 4})

		w := doJSON(t, s.Handler(), http.MethodPost, "/v1/cache/purge", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp PurgeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Purged)
	})

	t.Run("backend failure", func(t *testing.T) {
		s, _ := newTestServer(t, &fakePurger{err: errors.New("disk full")})

		w := doJSON(t, s.Handler(), http.MethodPost, "/v1/cache/purge", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "cache purge failed")
	})
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(&fakeEnricher{}, &fakePurger{}, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

func TestNew_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { New(nil, &fakePurger{}, DefaultConfig(), zerolog.Nop()) })
	assert.Panics(t, func() { New(&fakeEnricher{}, nil, DefaultConfig(), zerolog.Nop()) })
}
