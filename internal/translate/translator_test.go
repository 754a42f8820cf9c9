package translate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subconform/internal/jobstore"
	"subconform/internal/logging"
	"subconform/internal/subtitles"
	"subconform/internal/testsupport"
	"subconform/internal/translate"
)

type recordingProvider struct {
	requests []translate.BatchRequest
	answer   func(cue subtitles.Cue) string
	err      error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) TranslateBatch(_ context.Context, req translate.BatchRequest) ([]string, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	out := make([]string, len(req.Cues))
	for i, cue := range req.Cues {
		out[i] = p.answer(cue)
	}
	return out, nil
}

func numberedCues(n int) []subtitles.Cue {
	cues := make([]subtitles.Cue, n)
	for i := range cues {
		cues[i] = subtitles.Cue{
			Index:      i + 1,
			StartMS:    int64(i) * 2000,
			EndMS:      int64(i)*2000 + 1500,
			SourceText: "Line " + string(rune('A'+i)),
		}
	}
	return cues
}

func TestTranslatorSlidingWindow(t *testing.T) {
	provider := &recordingProvider{answer: func(c subtitles.Cue) string { return "es " + c.SourceText }}
	tr := translate.NewTranslator(provider, nil, logging.NewNop())
	cues := numberedCues(12)

	var calls []int
	stats, err := tr.Translate(context.Background(), cues, translate.Options{
		SourceLanguage: "eng",
		TargetLanguage: "es-MX",
		BatchSize:      5,
		ContextSize:    3,
	}, func(done, total int) { calls = append(calls, done) })
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(provider.requests) != 3 || stats.ProviderCalls != 3 || stats.FromProvider != 12 {
		t.Fatalf("unexpected batching: %d requests, stats %+v", len(provider.requests), stats)
	}
	second := provider.requests[1]
	if len(second.Cues) != 5 || second.Cues[0].Index != 6 {
		t.Fatalf("unexpected second batch %+v", second.Cues)
	}
	if len(second.Context) != 3 || second.Context[0].Index != 3 || second.Context[2].Text() != "es Line E" {
		t.Fatalf("context must hold the previous translated cues: %+v", second.Context)
	}
	if second.TargetLanguage != "es" || second.SourceLanguage != "en" {
		t.Fatalf("languages not normalized: %s -> %s", second.SourceLanguage, second.TargetLanguage)
	}
	if len(calls) != 3 || calls[2] != 12 {
		t.Fatalf("unexpected progress calls %v", calls)
	}
	if cues[11].TranslatedText == nil || *cues[11].TranslatedText != "es Line L" {
		t.Fatalf("unexpected translation %+v", cues[11])
	}
}

func TestTranslatorFallsBackToSourceForSkippedCues(t *testing.T) {
	provider := &recordingProvider{answer: func(c subtitles.Cue) string {
		if c.Index == 2 {
			return "  "
		}
		return "ok"
	}}
	cues := numberedCues(3)
	stats, err := translate.NewTranslator(provider, nil, logging.NewNop()).
		Translate(context.Background(), cues, translate.Options{TargetLanguage: "fr"}, nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if stats.Untranslated != 1 || *cues[1].TranslatedText != "Line B" {
		t.Fatalf("skipped cue must keep its source: %+v %q", stats, *cues[1].TranslatedText)
	}
}

func TestTranslatorProviderError(t *testing.T) {
	provider := &recordingProvider{err: errors.New("rate limited")}
	_, err := translate.NewTranslator(provider, nil, logging.NewNop()).
		Translate(context.Background(), numberedCues(2), translate.Options{TargetLanguage: "fr"}, nil)
	if err == nil || !strings.Contains(err.Error(), "rate limited") || !strings.Contains(err.Error(), "cues 1-2") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTranslatorUsesMemoryAndGlossary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := store.Remember(ctx, jobstore.MemoryEntry{
		SourceLanguage: "en", TargetLanguage: "es", SourceText: "Welcome to Acme", TranslatedText: "Bienvenido a Acme", JobID: "old",
	}); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	cues := []subtitles.Cue{
		{Index: 1, StartMS: 0, EndMS: 2000, SourceText: "Welcome to Acme"},
		{Index: 2, StartMS: 2500, EndMS: 4000, SourceText: "Good night"},
	}
	tr := translate.NewTranslator(translate.MockProvider{}, store, logging.NewNop())
	stats, err := tr.Translate(ctx, cues, translate.Options{
		JobID:          "job-9",
		SourceLanguage: "en",
		TargetLanguage: "es",
		Glossary:       translate.NewGlossary(map[string]string{"Acme": "Acme S.A."}),
	}, nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if stats.FromMemory != 1 || stats.FromProvider != 1 || stats.ProviderCalls != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := *cues[0].TranslatedText; got != "Bienvenido a Acme S.A." {
		t.Fatalf("glossary not applied to remembered line: %q", got)
	}
	if !cues[0].HasFlag(subtitles.FlagFromMemory) || len(cues[0].ProtectedTerms) != 1 {
		t.Fatalf("unexpected cue %+v", cues[0])
	}
	if got := *cues[1].TranslatedText; got != "[ES] Good night" {
		t.Fatalf("unexpected mock translation %q", got)
	}

	text, ok, err := store.Lookup(ctx, "en", "es", "Good night")
	if err != nil || !ok || text != "[ES] Good night" {
		t.Fatalf("new translation not remembered: %q %v %v", text, ok, err)
	}
	if n, _ := store.RejectJob(ctx, "job-9"); n != 1 {
		t.Fatalf("expected the job's entry to be rejectable, got %d", n)
	}
}
