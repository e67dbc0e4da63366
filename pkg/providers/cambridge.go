package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// Cambridge Dictionary locations.
const (
	CambridgeHost    = "https://dictionary.cambridge.org"
	CambridgeBaseURL = CambridgeHost + "/dictionary/english/"
)

// CambridgeConfig points the scraper at the dictionary site.
type CambridgeConfig struct {
	BaseURL string
	// Host resolves relative audio paths. Defaults to CambridgeHost.
	Host string
}

type cambridge struct {
	cfg       CambridgeConfig
	transport *Transport
}

func (c cambridge) invoke(ctx context.Context, name, term string) ([]byte, error) {
	base := c.cfg.BaseURL
	if base == "" {
		base = CambridgeBaseURL
	}
	return c.transport.get(ctx, request{
		provider: name,
		url:      base + url.PathEscape(term),
	})
}

// CambridgeDictionary scrapes definitions from the Cambridge Dictionary page.
type CambridgeDictionary struct {
	cambridge
}

// NewCambridgeDictionary creates the Cambridge definition provider.
func NewCambridgeDictionary(cfg CambridgeConfig, transport *Transport) *CambridgeDictionary {
	return &CambridgeDictionary{cambridge{cfg: cfg, transport: transport}}
}

func (p *CambridgeDictionary) Name() string                { return "cambridge" }
func (p *CambridgeDictionary) Category() provider.Category { return provider.Definition }
func (p *CambridgeDictionary) Configured() bool            { return true }

func (p *CambridgeDictionary) Invoke(ctx context.Context, term string) ([]byte, error) {
	return p.invoke(ctx, p.Name(), term)
}

// Normalize takes the first definition block, the US IPA, the first part of
// speech and up to three examples.
func (p *CambridgeDictionary) Normalize(raw []byte) (provider.Fragment, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}

	def := findFirst(doc, func(n *html.Node) bool { return hasClasses(n, "def", "ddef_d") })
	definition := nodeText(def)
	if definition == "" {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no definition found"))
	}

	f := provider.Fragment{
		Definitions: []string{definition},
		IPA: nodeText(findFirst(doc, func(n *html.Node) bool {
			return hasClasses(n, "ipa") && hasAncestorClass(n, "us")
		})),
		PartOfSpeech: nodeText(findFirst(doc, func(n *html.Node) bool { return hasClasses(n, "pos", "dpos") })),
	}

	for _, n := range findAll(doc, func(n *html.Node) bool { return hasClasses(n, "examp", "dexamp") }) {
		if text := nodeText(n); text != "" {
			f.Examples = append(f.Examples, text)
		}
		if len(f.Examples) == provider.MaxExamples {
			break
		}
	}
	return f, nil
}

// CambridgeAudio scrapes the US mp3 recording from the Cambridge Dictionary page.
type CambridgeAudio struct {
	cambridge
}

// NewCambridgeAudio creates the Cambridge audio provider.
func NewCambridgeAudio(cfg CambridgeConfig, transport *Transport) *CambridgeAudio {
	return &CambridgeAudio{cambridge{cfg: cfg, transport: transport}}
}

func (p *CambridgeAudio) Name() string                { return "cambridge" }
func (p *CambridgeAudio) Category() provider.Category { return provider.Audio }
func (p *CambridgeAudio) Configured() bool            { return true }

func (p *CambridgeAudio) Invoke(ctx context.Context, term string) ([]byte, error) {
	return p.invoke(ctx, p.Name(), term)
}

func (p *CambridgeAudio) Normalize(raw []byte) (provider.Fragment, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), err)
	}

	source := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "source" &&
			attr(n, "type") == "audio/mpeg" && hasAncestorClass(n, "us")
	})
	src := attr(source, "src")
	if src == "" {
		return provider.Fragment{}, apierr.InvalidResponse(p.Name(), fmt.Errorf("no us audio"))
	}
	if !strings.HasPrefix(src, "http") {
		host := p.cfg.Host
		if host == "" {
			host = CambridgeHost
		}
		src = strings.TrimSuffix(host, "/") + src
	}

	return provider.Fragment{
		Audio: []provider.AudioCandidate{{
			URL:      src,
			Accent:   "us",
			Provider: p.Name(),
			Quality:  provider.QualityProfessional,
		}},
	}, nil
}

// findFirst returns the first node in document order matching match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasClasses reports whether n is an element carrying every given class.
func hasClasses(n *html.Node, classes ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	have := strings.Fields(attr(n, "class"))
	for _, want := range classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func hasAncestorClass(n *html.Node, class string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if hasClasses(p, class) {
			return true
		}
	}
	return false
}

// nodeText concatenates the text below n with whitespace collapsed.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
