package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"subconform/internal/config"
	"subconform/internal/jobs"
	"subconform/internal/logging"
	"subconform/internal/notifications"
	"subconform/internal/qc"
	"subconform/internal/services"
	"subconform/internal/subtitles"
	"subconform/internal/testsupport"
	"subconform/internal/translate"
	"subconform/internal/workflow"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) TranslateBatch(context.Context, translate.BatchRequest) ([]string, error) {
	return nil, errors.New("upstream unavailable")
}

// progressProvider records the job progress seen on every batch.
type progressProvider struct {
	mu   sync.Mutex
	job  *jobs.Job
	seen []float64
}

func (p *progressProvider) Name() string { return "progress" }

func (p *progressProvider) TranslateBatch(ctx context.Context, req translate.BatchRequest) ([]string, error) {
	p.mu.Lock()
	p.seen = append(p.seen, p.job.Status().Progress)
	p.mu.Unlock()
	return translate.MockProvider{}.TranslateBatch(ctx, req)
}

func newManager(t *testing.T, cfg *config.Config, provider translate.Provider, opts ...workflow.ManagerOption) (*workflow.Manager, *jobs.Registry) {
	t.Helper()
	registry := jobs.NewRegistry(nil, logging.NewNop())
	deps := workflow.Dependencies{}
	if provider != nil {
		deps.Translator = translate.NewTranslator(provider, nil, logging.NewNop())
	}
	return workflow.NewManager(cfg, registry, deps, logging.NewNop(), opts...), registry
}

func sampleRequest() jobs.Request {
	return jobs.Request{
		Filename:       "episode.srt",
		SourceLanguage: "en",
		Content:        []byte(testsupport.SampleSRT),
	}
}

func readCues(t *testing.T, job *jobs.Job) []subtitles.Cue {
	t.Helper()
	var cues []subtitles.Cue
	if err := job.Read(func(doc *subtitles.Document) error {
		for _, c := range doc.Cues {
			cues = append(cues, c.Clone())
		}
		return nil
	}); err != nil {
		t.Fatalf("read document: %v", err)
	}
	return cues
}

func TestProcessSourceOnlyJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, nil)
	job := registry.Create(sampleRequest())

	if err := mgr.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}
	status := job.Status()
	if status.State != jobs.StateCompleted || status.Progress != 100 || status.Stage != "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Summary == nil || status.Summary.TotalCues != 3 || status.Summary.Passed {
		t.Fatalf("unexpected summary %+v", status.Summary)
	}
	if status.Review != jobs.ReviewPending {
		t.Fatalf("expected pending review for a failing file, got %s", status.Review)
	}
	if job.Request().Content != nil {
		t.Fatal("expected upload to be released after parsing")
	}

	cues := readCues(t, job)
	for _, c := range cues {
		if c.TranslatedText != nil {
			t.Fatalf("cue %d gained a translation without a target language", c.Index)
		}
	}
	if !cues[1].HasFlag(string(qc.IssueLineTooLong)) {
		t.Fatalf("expected line_too_long label on cue 2, got %v", cues[1].Flags)
	}
	if !cues[2].HasFlag(string(qc.IssueShortDuration)) || !cues[2].HasFlag(string(qc.IssueCPSExceeded)) {
		t.Fatalf("expected timing labels on cue 3, got %v", cues[2].Flags)
	}
	if len(cues[0].Flags) != 0 {
		t.Fatalf("clean cue carries flags %v", cues[0].Flags)
	}
}

func TestProcessTranslatesAndWraps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, nil)
	req := sampleRequest()
	req.TargetLanguage = "es"
	job := registry.Create(req)

	if err := mgr.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}
	cues := readCues(t, job)
	if got := cues[0].Text(); got != "[ES] Hello there." {
		t.Fatalf("unexpected translation %q", got)
	}
	if cues[0].SourceText != "Hello there." {
		t.Fatalf("source text changed: %q", cues[0].SourceText)
	}
	long := cues[1].Text()
	if !strings.Contains(long, "\n") {
		t.Fatalf("expected long translation to be wrapped, got %q", long)
	}
	for _, line := range subtitles.Lines(long) {
		if n := len([]rune(line)); n > cfg.Constraints.MaxCharsPerLine {
			t.Fatalf("wrapped line has %d characters: %q", n, line)
		}
	}
	if cues[1].HasFlag(string(qc.IssueLineTooLong)) {
		t.Fatalf("wrap should clear line_too_long, flags %v", cues[1].Flags)
	}
	for _, flag := range cues[1].Flags {
		if strings.HasPrefix(flag, "CONFORMED:") {
			t.Fatalf("wrapping during translation must not record a fix: %v", cues[1].Flags)
		}
	}
}

func TestProcessDryRunCopiesSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, failingProvider{})
	req := sampleRequest()
	req.TargetLanguage = "fr"
	req.DryRun = true
	job := registry.Create(req)

	if err := mgr.Process(context.Background(), job); err != nil {
		t.Fatalf("dry run must not call the provider: %v", err)
	}
	for _, c := range readCues(t, job) {
		if c.TranslatedText == nil || *c.TranslatedText != c.SourceText {
			t.Fatalf("cue %d: expected source copied to translation, got %v", c.Index, c.TranslatedText)
		}
	}
}

func TestProcessAutoFixTouchesEveryFailingCue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, nil)
	req := sampleRequest()
	req.AutoFix = true
	job := registry.Create(req)

	if err := mgr.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, c := range readCues(t, job) {
		if c.Index == 1 {
			continue
		}
		touched := c.HasFlag(subtitles.FlagUnfixable)
		for _, flag := range c.Flags {
			touched = touched || strings.HasPrefix(flag, "CONFORMED:")
		}
		if !touched {
			t.Fatalf("cue %d neither fixed nor marked unfixable: %v", c.Index, c.Flags)
		}
	}
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider translate.Provider
		mutate   func(*jobs.Request)
		marker   error
		contains string
	}{
		{
			name:     "unparseable upload",
			mutate:   func(r *jobs.Request) { r.Content = []byte("not a subtitle file") },
			marker:   services.ErrValidation,
			contains: "parse: decode subtitles",
		},
		{
			name: "invalid constraints",
			mutate: func(r *jobs.Request) {
				r.Constraints = subtitles.Constraints{MaxLines: 9, MaxCharsPerLine: 42, MaxCPS: 17, MinDurationMS: 500}
			},
			marker:   services.ErrValidation,
			contains: "check constraints",
		},
		{
			name:     "provider error",
			provider: failingProvider{},
			mutate:   func(r *jobs.Request) { r.TargetLanguage = "de" },
			marker:   services.ErrExternalTool,
			contains: "upstream unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			mgr, registry := newManager(t, cfg, tt.provider)
			req := sampleRequest()
			tt.mutate(&req)
			job := registry.Create(req)

			err := mgr.Process(context.Background(), job)
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			status := job.Status()
			if status.State != jobs.StateFailed || !strings.Contains(status.Error, tt.contains) {
				t.Fatalf("unexpected status %+v", status)
			}
			if summary := mgr.Status(context.Background()); summary.LastError == "" || summary.LastJobID != job.ID() {
				t.Fatalf("expected failure in workflow status, got %+v", summary)
			}
		})
	}
}

func TestProgressIsMonotonicWithinTranslateRange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Translation.BatchSize = 1
	provider := &progressProvider{}
	mgr, registry := newManager(t, cfg, provider)
	req := sampleRequest()
	req.TargetLanguage = "it"
	job := registry.Create(req)
	provider.job = job

	if err := mgr.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(provider.seen) != 3 {
		t.Fatalf("expected one batch per cue, got %v", provider.seen)
	}
	last := 0.0
	for _, p := range provider.seen {
		if p < last || p < 10 || p >= 80 {
			t.Fatalf("progress out of order or range: %v", provider.seen)
		}
		last = p
	}
}

func TestWorkersDrainSubmittedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 2
	mgr, registry := newManager(t, cfg, nil)

	var submitted []*jobs.Job
	for range 3 {
		job := registry.Create(sampleRequest())
		if err := mgr.Submit(job); err != nil {
			t.Fatalf("submit: %v", err)
		}
		submitted = append(submitted, job)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, job := range submitted {
		for job.Status().State != jobs.StateCompleted {
			if time.Now().After(deadline) {
				t.Fatalf("job %s stuck in %s", job.ID(), job.Status().State)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	status := mgr.Status(context.Background())
	if !status.Running || status.Workers != 2 || status.JobCounts[jobs.StateCompleted] != 3 {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.StageHealth) != 5 || !status.StageHealth[workflow.StageTranslate].Ready {
		t.Fatalf("unexpected stage health %+v", status.StageHealth)
	}

	mgr.Stop()
	if mgr.Status(context.Background()).Running {
		t.Fatal("expected manager to report stopped")
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, nil, workflow.WithQueueCapacity(1))

	if err := mgr.Submit(registry.Create(sampleRequest())); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := mgr.Submit(registry.Create(sampleRequest())); !errors.Is(err, workflow.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestCancelledJobIsMarkedStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, registry := newManager(t, cfg, nil)
	req := sampleRequest()
	req.TargetLanguage = "es"
	job := registry.Create(req)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mgr.Process(ctx, job); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if status := job.Status(); status.State != jobs.StateFailed || status.Error != jobs.StoppedReason {
		t.Fatalf("unexpected status %+v", status)
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []notifications.JobOutcome
	failed    []string
}

func (r *recordingNotifier) NotifyJobCompleted(_ context.Context, outcome notifications.JobOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, outcome)
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(_ context.Context, outcome notifications.JobOutcome, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, outcome.JobID+": "+err.Error())
	return errors.New("ntfy unreachable")
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestProcessNotifiesOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	registry := jobs.NewRegistry(nil, logging.NewNop())
	mgr := workflow.NewManager(cfg, registry, workflow.Dependencies{
		Translator: translate.NewTranslator(failingProvider{}, nil, logging.NewNop()),
		Notifier:   notifier,
	}, logging.NewNop())

	ok := registry.Create(sampleRequest())
	if err := mgr.Process(context.Background(), ok); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(notifier.completed) != 1 {
		t.Fatalf("expected one completion notice, got %+v", notifier.completed)
	}
	got := notifier.completed[0]
	if got.JobID != ok.ID() || got.Filename != "episode.srt" || got.Cues != 3 || got.Passed {
		t.Fatalf("unexpected outcome %+v", got)
	}

	req := sampleRequest()
	req.TargetLanguage = "de"
	failed := registry.Create(req)
	if err := mgr.Process(context.Background(), failed); err == nil {
		t.Fatal("expected provider failure")
	}
	if len(notifier.failed) != 1 || !strings.HasPrefix(notifier.failed[0], failed.ID()+": ") ||
		!strings.Contains(notifier.failed[0], "upstream unavailable") {
		t.Fatalf("unexpected failure notices %v", notifier.failed)
	}
	if failed.Status().State != jobs.StateFailed {
		t.Fatal("a notification error must not change the job state")
	}
}
