package providers

import (
	"fmt"

	"github.com/Sternrassler/vocab-enricher/pkg/provider"
)

// Config gathers the settings of every built-in provider.
type Config struct {
	UserAgent      string
	Oxford         OxfordConfig
	Cambridge      CambridgeConfig
	MerriamWebster MerriamWebsterConfig
	FreeDictionary string
	OpenAI         OpenAIConfig
	Forvo          ForvoConfig
	MyMemory       MyMemoryConfig
	Pixabay        PixabayConfig
	// Priorities overrides the built-in order per category.
	Priorities map[provider.Category][]string
}

// NewRegistry registers every built-in provider in its default order and
// applies the configured priorities.
//
// Definitions: oxford, cambridge, merriam-webster, free, openai.
// Audio: forvo, oxford, cambridge, google-tts.
// Translation: mymemory. Images: pixabay.
func NewRegistry(cfg Config) (*provider.Registry, error) {
	transport := NewTransport(cfg.UserAgent)
	reg := provider.NewRegistry()

	builtins := []provider.Provider{
		NewOxfordDictionary(cfg.Oxford, transport),
		NewCambridgeDictionary(cfg.Cambridge, transport),
		NewMerriamWebster(cfg.MerriamWebster, transport),
		NewFreeDictionary(cfg.FreeDictionary, transport),
		NewOpenAI(cfg.OpenAI),

		NewForvo(cfg.Forvo, transport),
		NewOxfordAudio(cfg.Oxford, transport),
		NewCambridgeAudio(cfg.Cambridge, transport),
		NewGoogleTTS(),

		NewMyMemory(cfg.MyMemory, transport),
		NewPixabay(cfg.Pixabay, transport),
	}
	for _, p := range builtins {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	for category, names := range cfg.Priorities {
		if len(names) == 0 {
			continue
		}
		if err := reg.SetPriority(category, names); err != nil {
			return nil, fmt.Errorf("providers: %w", err)
		}
	}
	return reg, nil
}
