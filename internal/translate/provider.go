package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subconform/internal/config"
	"subconform/internal/services/llm"
	"subconform/internal/subtitles"
)

// ErrUnknownProvider reports a provider name the factory does not know.
var ErrUnknownProvider = errors.New("unknown translation provider")

// BatchRequest is one provider call.
type BatchRequest struct {
	// Cues are translated in order; the result holds one entry per cue.
	Cues []subtitles.Cue
	// Context holds the cues immediately before the batch, already translated.
	Context        []subtitles.Cue
	SourceLanguage string
	TargetLanguage string
	Glossary       Glossary
	Constraints    subtitles.Constraints
}

// Provider turns source lines into target-language lines. An empty string
// in the result means the provider produced nothing for that cue.
type Provider interface {
	Name() string
	TranslateBatch(ctx context.Context, req BatchRequest) ([]string, error)
}

// NewProvider builds the provider selected in configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Translation.Provider)) {
	case config.ProviderMock, "":
		return MockProvider{}, nil
	case config.ProviderLLM:
		settings := cfg.GetLLM()
		client := llm.NewClient(llm.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			Referer:        settings.Referer,
			Title:          settings.Title,
			TimeoutSeconds: settings.TimeoutSeconds,
		}, llm.WithTemperature(0.3))
		return NewLLMProvider(client, settings.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Translation.Provider)
	}
}

// MockProvider labels the source text with the target language.
type MockProvider struct{}

// Name implements Provider.
func (MockProvider) Name() string { return config.ProviderMock }

// TranslateBatch implements Provider.
func (MockProvider) TranslateBatch(ctx context.Context, req BatchRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := "[" + strings.ToUpper(strings.TrimSpace(req.TargetLanguage)) + "] "
	out := make([]string, len(req.Cues))
	for i, cue := range req.Cues {
		out[i] = prefix + cue.SourceText
	}
	return out, nil
}
