package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	category Category
}

func (s stubProvider) Name() string                                   { return s.name }
func (s stubProvider) Category() Category                             { return s.category }
func (s stubProvider) Configured() bool                               { return true }
func (s stubProvider) Invoke(context.Context, string) ([]byte, error) { return nil, nil }
func (s stubProvider) Normalize([]byte) (Fragment, error)             { return Fragment{}, nil }

func newDictionaryRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"oxford", "cambridge", "merriam-webster", "free"} {
		require.NoError(t, r.Register(stubProvider{name: name, category: Definition}))
	}
	require.NoError(t, r.Register(stubProvider{name: "forvo", category: Audio}))
	return r
}

func TestRegistry_BuiltInOrder(t *testing.T) {
	r := newDictionaryRegistry(t)

	assert.Equal(t, []string{"oxford", "cambridge", "merriam-webster", "free"}, r.Names(Definition))
	assert.Equal(t, []string{"forvo"}, r.Names(Audio))
	assert.Empty(t, r.Names(Translation))

	ordered := r.Ordered(Definition)
	for i, d := range ordered {
		assert.Equal(t, i, d.Priority)
	}
}

func TestRegistry_SetPriority(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		want    []string
		wantErr bool
	}{
		{
			name:  "full reorder",
			order: []string{"free", "merriam-webster", "cambridge", "oxford"},
			want:  []string{"free", "merriam-webster", "cambridge", "oxford"},
		},
		{
			name:  "partial list keeps the rest in built-in order",
			order: []string{"free"},
			want:  []string{"free", "oxford", "cambridge", "merriam-webster"},
		},
		{
			name:  "empty list restores built-in order",
			order: nil,
			want:  []string{"oxford", "cambridge", "merriam-webster", "free"},
		},
		{
			name:    "unknown provider",
			order:   []string{"wiktionary"},
			want:    []string{"oxford", "cambridge", "merriam-webster", "free"},
			wantErr: true,
		},
		{
			name:    "duplicate entry",
			order:   []string{"free", "free"},
			want:    []string{"oxford", "cambridge", "merriam-webster", "free"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newDictionaryRegistry(t)

			err := r.SetPriority(Definition, tt.order)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, r.Names(Definition))
		})
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := newDictionaryRegistry(t)

	err := r.Register(stubProvider{name: "oxford", category: Definition})
	assert.Error(t, err)

	// The same name in another category is fine.
	assert.NoError(t, r.Register(stubProvider{name: "oxford", category: Audio}))
}

func TestFragment_Empty(t *testing.T) {
	tests := []struct {
		name     string
		fragment Fragment
		category Category
		want     bool
	}{
		{"no definitions", Fragment{PartOfSpeech: "verb"}, Definition, true},
		{"definitions", Fragment{Definitions: []string{"x"}}, Definition, false},
		{"audio", Fragment{Audio: []AudioCandidate{{URL: "u"}}}, Audio, false},
		{"no translation", Fragment{}, Translation, true},
		{"images", Fragment{Images: []string{"i"}}, Image, false},
		{"unknown category", Fragment{Definitions: []string{"x"}}, Category("other"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fragment.Empty(tt.category))
		})
	}
}
