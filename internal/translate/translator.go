package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subconform/internal/jobstore"
	"subconform/internal/language"
	"subconform/internal/logging"
	"subconform/internal/subtitles"
)

// Default window sizes.
const (
	DefaultBatchSize   = 5
	DefaultContextSize = 15
)

// Options controls one translation run.
type Options struct {
	JobID          string
	SourceLanguage string
	TargetLanguage string
	Glossary       Glossary
	Constraints    subtitles.Constraints
	BatchSize      int
	ContextSize    int
}

// Stats counts where translations came from.
type Stats struct {
	Cues          int `json:"cues"`
	FromMemory    int `json:"from_memory"`
	FromProvider  int `json:"from_provider"`
	Untranslated  int `json:"untranslated"`
	ProviderCalls int `json:"provider_calls"`
	GlossaryHits  int `json:"glossary_hits"`
}

// Progress receives the number of cues finished so far.
type Progress func(done, total int)

// Translator drives a Provider over a cue list.
type Translator struct {
	provider Provider
	memory   Memory
	logger   *slog.Logger
}

// NewTranslator constructs a translator. memory may be nil.
func NewTranslator(provider Provider, memory Memory, logger *slog.Logger) *Translator {
	return &Translator{
		provider: provider,
		memory:   memory,
		logger:   logging.NewComponentLogger(logger, "translate"),
	}
}

// Provider returns the provider the translator calls.
func (t *Translator) Provider() Provider {
	return t.provider
}

// Translate sets TranslatedText on every cue in place. Cues the provider
// skipped keep their source text as the translation. Provider errors abort
// the run.
func (t *Translator) Translate(ctx context.Context, cues []subtitles.Cue, opts Options, progress Progress) (Stats, error) {
	opts.SourceLanguage = language.Normalize(opts.SourceLanguage)
	opts.TargetLanguage = language.Normalize(opts.TargetLanguage)
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ContextSize < 0 {
		opts.ContextSize = 0
	}
	logger := logging.WithContext(ctx, t.logger).With(
		logging.String("provider", t.provider.Name()),
		logging.String("target_language", opts.TargetLanguage),
	)

	stats := Stats{Cues: len(cues)}
	for start := 0; start < len(cues); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := min(start+opts.BatchSize, len(cues))
		if err := t.translateBatch(ctx, cues, start, end, opts, &stats); err != nil {
			return stats, err
		}
		if progress != nil {
			progress(end, len(cues))
		}
	}

	for i := range cues {
		text, protected := opts.Glossary.Apply(cues[i].SourceText, cues[i].Text())
		cues[i].SetText(text)
		if len(protected) > 0 {
			stats.GlossaryHits += len(protected)
			cues[i].ProtectedTerms = mergeTerms(cues[i].ProtectedTerms, protected)
		}
	}

	logger.Info("translation complete",
		logging.Int("cues", stats.Cues),
		logging.Int("from_memory", stats.FromMemory),
		logging.Int("from_provider", stats.FromProvider),
		logging.Int("provider_calls", stats.ProviderCalls),
		logging.Int("glossary_hits", stats.GlossaryHits),
	)
	if stats.Untranslated > 0 {
		logging.WarnWithContext(logger, "provider skipped cues", "translation_incomplete",
			logging.Int("untranslated", stats.Untranslated),
			logging.String(logging.FieldErrorHint, "review the listed cues; they still hold source text"),
			logging.String(logging.FieldImpact, "untranslated cues keep the source text"),
		)
	}
	return stats, nil
}

func (t *Translator) translateBatch(ctx context.Context, cues []subtitles.Cue, start, end int, opts Options, stats *Stats) error {
	var pending []int
	for i := start; i < end; i++ {
		if text, ok := t.recall(ctx, cues[i].SourceText, opts); ok {
			cues[i].SetText(text)
			cues[i].AddFlag(subtitles.FlagFromMemory)
			stats.FromMemory++
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return nil
	}

	req := BatchRequest{
		Context:        cues[max(0, start-opts.ContextSize):start],
		SourceLanguage: opts.SourceLanguage,
		TargetLanguage: opts.TargetLanguage,
		Glossary:       opts.Glossary,
		Constraints:    opts.Constraints,
	}
	for _, i := range pending {
		req.Cues = append(req.Cues, cues[i])
	}
	stats.ProviderCalls++
	out, err := t.provider.TranslateBatch(ctx, req)
	if err != nil {
		return fmt.Errorf("translate cues %d-%d with %s: %w", cues[start].Index, cues[end-1].Index, t.provider.Name(), err)
	}
	if len(out) != len(pending) {
		return fmt.Errorf("translate cues %d-%d with %s: got %d translations for %d cues",
			cues[start].Index, cues[end-1].Index, t.provider.Name(), len(out), len(pending))
	}
	for k, i := range pending {
		text := subtitles.NormalizeText(out[k])
		if strings.TrimSpace(text) == "" {
			stats.Untranslated++
			cues[i].SetText(cues[i].SourceText)
			continue
		}
		cues[i].SetText(text)
		stats.FromProvider++
		t.remember(ctx, cues[i].SourceText, text, opts)
	}
	return nil
}

func (t *Translator) recall(ctx context.Context, source string, opts Options) (string, bool) {
	if t.memory == nil {
		return "", false
	}
	text, ok, err := t.memory.Lookup(ctx, opts.SourceLanguage, opts.TargetLanguage, source)
	if err != nil {
		logging.WarnWithContext(t.logger, "translation memory lookup failed", "memory_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "line is sent to the provider instead"),
		)
		return "", false
	}
	return text, ok
}

func (t *Translator) remember(ctx context.Context, source, translated string, opts Options) {
	if t.memory == nil {
		return
	}
	err := t.memory.Remember(ctx, jobstore.MemoryEntry{
		SourceLanguage: opts.SourceLanguage,
		TargetLanguage: opts.TargetLanguage,
		SourceText:     source,
		TranslatedText: translated,
		JobID:          opts.JobID,
	})
	if err != nil {
		logging.WarnWithContext(t.logger, "translation memory store failed", "memory_store_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "line will be translated again next time"),
		)
	}
}

func mergeTerms(existing, added []string) []string {
	for _, term := range added {
		dup := false
		for _, e := range existing {
			if strings.EqualFold(e, term) {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, term)
		}
	}
	return existing
}
