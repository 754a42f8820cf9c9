package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subconform/internal/config"
	"subconform/internal/language"
	"subconform/internal/services/llm"
)

// Completer issues JSON-only chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMProvider translates through a chat completions model.
type LLMProvider struct {
	client Completer
	model  string
}

// NewLLMProvider wraps client. model is only used for Name.
func NewLLMProvider(client Completer, model string) *LLMProvider {
	return &LLMProvider{client: client, model: strings.TrimSpace(model)}
}

// Name implements Provider.
func (p *LLMProvider) Name() string {
	if p.model == "" {
		return config.ProviderLLM
	}
	return config.ProviderLLM + ":" + p.model
}

// HealthCheck probes the model when the client supports it.
func (p *LLMProvider) HealthCheck(ctx context.Context) error {
	checker, ok := p.client.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return nil
	}
	return checker.HealthCheck(ctx)
}

// Usage reports the client's token totals when the client meters them.
func (p *LLMProvider) Usage() llm.Usage {
	if metered, ok := p.client.(interface{ Usage() llm.Usage }); ok {
		return metered.Usage()
	}
	return llm.Usage{}
}

type llmTranslations struct {
	Translations []struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
	} `json:"translations"`
}

// TranslateBatch implements Provider. Lines the model skipped come back
// empty; a response with no usable line at all is an error.
func (p *LLMProvider) TranslateBatch(ctx context.Context, req BatchRequest) ([]string, error) {
	if len(req.Cues) == 0 {
		return nil, nil
	}
	system, user := buildPrompts(req)
	content, err := p.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var parsed llmTranslations
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}

	position := make(map[int]int, len(req.Cues))
	for i, cue := range req.Cues {
		position[cue.Index] = i
	}
	out := make([]string, len(req.Cues))
	found := 0
	for _, t := range parsed.Translations {
		i, ok := position[t.Index]
		text := strings.TrimSpace(t.Text)
		if !ok || text == "" || out[i] != "" {
			continue
		}
		out[i] = text
		found++
	}
	if found == 0 {
		return nil, errors.New("model returned no translations for the batch")
	}
	return out, nil
}

const systemPromptTemplate = `You are a professional subtitle translator. Translate every subtitle into %[1]s.

Rules:
1. Translate ALL text into %[1]s using its own script. Never leave source-language text behind.
2. Preserve meaning, tone and register. Adapt idioms naturally.
3. Keep lines short: at most %[2]d characters per line and %[3]d lines per subtitle. Use "\n" for line breaks.
4. Subtitles are read at no more than %[4]g characters per second, so prefer concise wording.
5. Use the glossary translations exactly as given.

Respond with JSON only, in this shape:
{"translations":[{"index":<subtitle number>,"text":"<translation>"}]}`

func buildPrompts(req BatchRequest) (string, string) {
	target := language.DisplayName(req.TargetLanguage)
	source := language.DisplayName(req.SourceLanguage)
	c := req.Constraints
	system := fmt.Sprintf(systemPromptTemplate, target, c.MaxCharsPerLine, c.MaxLines, c.MaxCPS)

	var b strings.Builder
	fmt.Fprintf(&b, "Translate these subtitles from %s to %s.\n", source, target)
	if terms := req.Glossary.Terms(); len(terms) > 0 {
		b.WriteString("\nGlossary:\n")
		for _, term := range terms {
			fmt.Fprintf(&b, "  %s -> %s\n", term.Source, term.Target)
		}
	}
	if len(req.Context) > 0 {
		b.WriteString("\nPrevious subtitles, for context only:\n")
		for _, cue := range req.Context {
			fmt.Fprintf(&b, "  [%d] %s\n", cue.Index, flatten(cue.Text()))
		}
	}
	b.WriteString("\nSubtitles to translate:\n")
	for _, cue := range req.Cues {
		fmt.Fprintf(&b, "%d: %s\n", cue.Index, flatten(cue.SourceText))
	}
	return system, b.String()
}

func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
