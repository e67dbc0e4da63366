package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/config"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

func sampleRecord() enrichment.Record {
	return enrichment.Record{
		Term:         "serendipity",
		Definitions:  []string{"finding something good without looking for it"},
		PartOfSpeech: "noun",
		IPA:          "/ˌserənˈdɪpəti/",
		Examples:     []string{"a fortunate stroke of serendipity"},
		Audio: []provider.AudioCandidate{
			{URL: "https://audio.example/serendipity.mp3", Accent: "us", Provider: "forvo", Quality: provider.QualityNative},
		},
		Translation: "sự tình cờ",
		Errors:      []enrichment.CategoryError{{Category: enrichment.CategoryImages, Message: "no image found"}},
	}
}

func TestOutputFormat_Set(t *testing.T) {
	tests := []struct {
		val     string
		want    outputFormat
		wantErr bool
	}{
		{val: "text", want: outputText},
		{val: "json", want: outputJSON},
		{val: "yaml", want: outputYAML},
		{val: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			var f outputFormat
			err := f.Set(tt.val)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestReadTerms(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "one per line", input: "apple\nbanana\n", want: []string{"apple", "banana"}},
		{name: "skips blanks and comments", input: "# fruit\n\n  apple  \n\nbreak down\n", want: []string{"apple", "break down"}},
		{name: "empty", input: "\n# nothing\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readTerms(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("apple\npear\n"), 0o600))

	got, err := batchTerms([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "pear"}, got)

	got, err = batchTerms([]string{"apple", "pear", "plum"})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "pear", "plum"}, got)
}

func TestPrinter_Record(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, newPrinter(&buf, outputText).Record(sampleRecord()))

		out := buf.String()
		assert.Contains(t, out, "serendipity\n")
		assert.Contains(t, out, "noun /ˌserənˈdɪpəti/")
		assert.Contains(t, out, "  1. finding something good without looking for it")
		assert.Contains(t, out, "https://audio.example/serendipity.mp3 (us, native)")
		assert.Contains(t, out, "Translation: sự tình cờ")
		assert.Contains(t, out, "! images: no image found")
		assert.NotContains(t, out, "Synonyms")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, newPrinter(&buf, outputJSON).Record(sampleRecord()))

		var rec enrichment.Record
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "serendipity", rec.Term)
		assert.Equal(t, "forvo", rec.Audio[0].Provider)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, newPrinter(&buf, outputYAML).Record(sampleRecord()))

		var rec map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "serendipity", rec["term"])
		assert.Equal(t, "noun", rec["part_of_speech"])
	})
}

func TestPrinter_Batch(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	rec := sampleRecord()
	entries := toBatchEntries([]batch.Result[enrichment.Record]{
		{Item: "serendipity", Success: true, Data: rec},
		{Item: "x", Success: false, Err: assert.AnError},
	})
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].Data)
	assert.Nil(t, entries[1].Data)
	assert.NotEmpty(t, entries[1].Error)

	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, outputText).Batch(entries))
	assert.Contains(t, buf.String(), "✓ serendipity")
	assert.Contains(t, buf.String(), "✗ x:")
	assert.Contains(t, buf.String(), "1/2 succeeded")
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPurgeCommand(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "vocab.db")
	cfgPath := writeTestConfig(t, "log:\n  level: error\ncache:\n  backend: sqlite\n  sql:\n    dsn: "+dsn+"\n")

	out, err := runCommand(t, "--config", cfgPath, "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 expired cache entries")

	out, err = runCommand(t, "--config", cfgPath, "--output", "json", "purge")
	require.NoError(t, err)
	assert.JSONEq(t, `{"purged":0}`, out)
}

func TestBatchCommand_TooManyTerms(t *testing.T) {
	cfgPath := writeTestConfig(t, "log:\n  level: error\n")

	args := append([]string{"--config", cfgPath, "batch"},
		strings.Fields("a1 b2 c3 d4 e5 f6 g7 h8 i9 j10 k11")...)
	_, err := runCommand(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum of 10")
}

func TestEnrichCommand_ValidationError(t *testing.T) {
	cfgPath := writeTestConfig(t, "log:\n  level: error\n")

	_, err := runCommand(t, "--config", cfgPath, "enrich", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	cfgPath := writeTestConfig(t, "cache:\n  backend: dynamo\n")

	_, err := runCommand(t, "--config", cfgPath, "purge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := connectRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := connectRedis(ctx, config.RedisConfig{Addr: addr}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	cfgPath := writeTestConfig(t, "log:\n  level: error\ncache:\n  backend: redis\n  redis:\n    addr: "+mr.Addr()+"\nrate_limit:\n  backend: redis\n")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.redis)

	a.store.Put(context.Background(), "def_apple", []byte(`{"definitions":["a fruit"]}`), "oxford", time.Hour)
	payload, ok := a.store.Get(context.Background(), "def_apple")
	assert.True(t, ok)
	assert.JSONEq(t, `{"definitions":["a fruit"]}`, string(payload))

	assert.NoError(t, a.Close())
}
