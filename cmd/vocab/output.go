package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

var (
	_                pflag.Value = (*outputFormat)(nil)
	allOutputFormats             = []outputFormat{outputText, outputJSON, outputYAML}
)

func (o *outputFormat) Set(val string) error {
	for _, f := range allOutputFormats {
		if val == string(f) {
			*o = f
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s", val)
}

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Type() string {
	return "format"
}

// printer renders records and batch results in the selected format.
type printer struct {
	w      io.Writer
	format outputFormat

	heading *color.Color
	label   *color.Color
	success *color.Color
	failure *color.Color
}

func newPrinter(w io.Writer, format outputFormat) *printer {
	return &printer{
		w:       w,
		format:  format,
		heading: color.New(color.Bold, color.FgCyan),
		label:   color.New(color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
	}
}

func (p *printer) encode(v any) error {
	switch p.format {
	case outputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %s does not encode", p.format)
	}
}

func (p *printer) Record(rec enrichment.Record) error {
	if p.format != outputText {
		return p.encode(rec)
	}

	p.heading.Fprintln(p.w, rec.Term)
	if rec.PartOfSpeech != "" || rec.IPA != "" {
		fmt.Fprintln(p.w, strings.TrimSpace(rec.PartOfSpeech+" "+rec.IPA))
	}
	p.list("Definitions", rec.Definitions, true)
	p.list("Examples", rec.Examples, false)
	p.list("Synonyms", rec.Synonyms, false)
	p.list("Antonyms", rec.Antonyms, false)
	if rec.Etymology != "" {
		p.label.Fprintln(p.w, "Etymology:")
		fmt.Fprintf(p.w, "  %s\n", rec.Etymology)
	}
	if len(rec.Audio) > 0 {
		p.label.Fprintln(p.w, "Audio:")
		for _, a := range rec.Audio {
			fmt.Fprintf(p.w, "  %s (%s, %s)\n", a.URL, a.Accent, a.Quality)
		}
	}
	if rec.Translation != "" {
		p.label.Fprint(p.w, "Translation: ")
		fmt.Fprintln(p.w, rec.Translation)
	}
	p.list("Collocations", rec.Collocations, false)
	p.list("Images", rec.Images, false)
	for _, e := range rec.Errors {
		p.failure.Fprintf(p.w, "! %s: %s\n", e.Category, e.Message)
	}
	return nil
}

func (p *printer) list(title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	p.label.Fprintf(p.w, "%s:\n", title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(p.w, "  %d. %s\n", i+1, item)
			continue
		}
		fmt.Fprintf(p.w, "  - %s\n", item)
	}
}

// batchEntry is the encoded form of one batch result.
type batchEntry struct {
	Term    string             `json:"term" yaml:"term"`
	Success bool               `json:"success" yaml:"success"`
	Data    *enrichment.Record `json:"data,omitempty" yaml:"data,omitempty"`
	Error   string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func (p *printer) Batch(entries []batchEntry) error {
	if p.format != outputText {
		return p.encode(entries)
	}

	succeeded := 0
	for _, e := range entries {
		if !e.Success {
			p.failure.Fprintf(p.w, "✗ %s: %s\n", e.Term, e.Error)
			continue
		}
		succeeded++
		p.success.Fprintf(p.w, "✓ ")
		if err := p.Record(*e.Data); err != nil {
			return err
		}
	}
	fmt.Fprintf(p.w, "\n%d/%d succeeded\n", succeeded, len(entries))
	return nil
}

func (p *printer) Purged(n int) error {
	if p.format != outputText {
		return p.encode(map[string]int{"purged": n})
	}
	p.success.Fprintf(p.w, "Purged %d expired cache entries\n", n)
	return nil
}
