package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subconform/internal/api"
	"subconform/internal/config"
	"subconform/internal/daemon"
	"subconform/internal/fixes"
	"subconform/internal/jobs"
	"subconform/internal/jobstore"
	"subconform/internal/logging"
	"subconform/internal/repair"
	"subconform/internal/testsupport"
	"subconform/internal/translate"
	"subconform/internal/workflow"
)

type fixture struct {
	cfg      *config.Config
	store    *jobstore.Store
	registry *jobs.Registry
	daemon   *daemon.Daemon
	hub      *logging.StreamHub
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	hub := logging.NewStreamHub(256)
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{filepath.Join(t.TempDir(), "daemon.log")},
		Hub:         hub,
	})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	registry := jobs.NewRegistry(store, logger)
	orchestrator := repair.New(fixes.NewGenerator(cfg.FixPolicy()), nil, logger)
	manager := workflow.NewManager(cfg, registry, workflow.Dependencies{
		Translator: translate.NewTranslator(translate.MockProvider{}, store, logger),
		Repair:     orchestrator,
	}, logger)
	svc := api.NewJobService(cfg, registry, manager, orchestrator, store, logger)
	d, err := daemon.New(cfg, daemon.Components{
		Store:    store,
		Registry: registry,
		Workflow: manager,
		Service:  svc,
		Hub:      hub,
		Provider: "mock",
		Version:  "test",
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return &fixture{cfg: cfg, store: store, registry: registry, daemon: d, hub: hub}
}

func startedFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	f := newFixture(t, testsupport.NewConfig(t, opts...))
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.daemon.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (f *fixture) waitFinished(t *testing.T, id string) jobs.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w := f.do(t, http.MethodGet, "/api/jobs/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status request failed: %d %s", w.Code, w.Body.String())
		}
		status := decode[jobs.Status](t, w)
		if status.State.Terminal() {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return jobs.Status{}
}

func (f *fixture) submit(t *testing.T, req api.CreateJobRequest) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/jobs", req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	resp := decode[api.CreateJobResponse](t, w)
	if resp.JobID == "" || w.Header().Get("Location") != "/api/jobs/"+resp.JobID {
		t.Fatalf("unexpected create response %+v (location %q)", resp, w.Header().Get("Location"))
	}
	return resp.JobID
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg)
	ctx := context.Background()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := f.daemon.Status(ctx)
	if !status.Running || status.Address == "" || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected running status %+v", status)
	}

	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other := newFixture(t, cfg)
	if err := other.daemon.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := other.daemon.Start(ctx); err != nil {
		t.Fatalf("expected lock to be free after stop: %v", err)
	}
}

func TestStartFailsUnfinishedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stale := jobs.NewRegistry(store, logging.NewNop()).Create(jobs.Request{Filename: "old.srt", SourceLanguage: "en"})

	f := newFixture(t, cfg)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	w := f.do(t, http.MethodGet, "/api/jobs/"+stale.ID(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected restored job, got %d", w.Code)
	}
	status := decode[jobs.Status](t, w)
	if status.State != jobs.StateFailed || status.Error != jobs.StoppedReason {
		t.Fatalf("unexpected restored status %+v", status)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	f := startedFixture(t)
	id := f.submit(t, api.CreateJobRequest{Filename: "episode.srt", Content: testsupport.SampleSRT, SourceLanguage: "en"})

	status := f.waitFinished(t, id)
	if status.State != jobs.StateCompleted || status.Summary == nil || status.Summary.Passed {
		t.Fatalf("expected completed job with QC failures, got %+v", status)
	}

	report := decode[api.QCReport](t, f.do(t, http.MethodGet, "/api/jobs/"+id+"/qc-report", nil))
	if report.JobID != id || len(report.Cues) != 3 || len(report.Issues) == 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	w := f.do(t, http.MethodGet, "/api/jobs/"+id+"/cues/2/suggestions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("suggestions: %d %s", w.Code, w.Body.String())
	}
	suggestions := decode[api.SuggestionsResponse](t, w)
	if suggestions.CueIndex != 2 || len(suggestions.Options) == 0 {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}

	w = f.do(t, http.MethodPost, "/api/jobs/"+id+"/cues/2/fix", api.FixRequest{FixType: "reflow"})
	if w.Code != http.StatusOK {
		t.Fatalf("fix: %d %s", w.Code, w.Body.String())
	}
	fixed := decode[api.FixResponse](t, w)
	if !fixed.Success || !fixed.Cue.HasFlag("FIXED:reflow") || fixed.Cue.HasFlag("CONFORMED:reflow") {
		t.Fatalf("unexpected fix response %+v", fixed)
	}

	w = f.do(t, http.MethodPost, "/api/jobs/"+id+"/cues/2/fix", api.FixRequest{FixType: "reflow"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected stale fix conflict, got %d %s", w.Code, w.Body.String())
	}
	if body := decode[api.ErrorResponse](t, w); body.Code != "stale_fix" || body.CueIndex != 2 {
		t.Fatalf("unexpected error body %+v", body)
	}

	w = f.do(t, http.MethodGet, "/api/jobs/"+id+"/download/vtt", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "WEBVTT") {
		t.Fatalf("download: %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "episode.vtt") {
		t.Fatalf("unexpected content disposition %q", got)
	}

	w = f.do(t, http.MethodPost, "/api/jobs/"+id+"/review", api.ReviewRequest{Decision: "approve"})
	if w.Code != http.StatusOK {
		t.Fatalf("review: %d %s", w.Code, w.Body.String())
	}
	if review := decode[api.ReviewResponse](t, w); review.Review != jobs.ReviewApproved {
		t.Fatalf("unexpected review %+v", review)
	}

	list := decode[api.JobListResponse](t, f.do(t, http.MethodGet, "/api/jobs", nil))
	if len(list.Jobs) != 1 || list.Jobs[0].JobID != id {
		t.Fatalf("unexpected job list %+v", list)
	}

	if w := f.do(t, http.MethodDelete, "/api/jobs/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodGet, "/api/jobs/"+id, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestTranslatedJobGenderAndAutoFix(t *testing.T) {
	f := startedFixture(t)
	id := f.submit(t, api.CreateJobRequest{Filename: "episode.srt", Content: testsupport.SampleSRT, SourceLanguage: "en", TargetLanguage: "es"})
	if status := f.waitFinished(t, id); status.State != jobs.StateCompleted {
		t.Fatalf("expected completion, got %+v", status)
	}

	w := f.do(t, http.MethodGet, "/api/jobs/"+id+"/cues/1/gender", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("gender: %d %s", w.Code, w.Body.String())
	}
	if state := decode[repair.GenderState](t, w); state.CueIndex != 1 || state.Ambiguous {
		t.Fatalf("unexpected gender state %+v", state)
	}

	w = f.do(t, http.MethodPost, "/api/jobs/"+id+"/cues/1/gender", api.GenderRequest{Gender: "feminine"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected missing alternative to be rejected, got %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/api/jobs/"+id+"/autofix", api.AutoFixRequest{MaxFixes: 0})
	if w.Code != http.StatusOK {
		t.Fatalf("autofix: %d %s", w.Code, w.Body.String())
	}
	result := decode[repair.AutoFixResult](t, w)
	if result.FixedCount+result.FailedCount+result.SkippedCount == 0 {
		t.Fatalf("expected auto-fix to visit failing cues, got %+v", result)
	}

	translated := decode[api.JobResult](t, f.do(t, http.MethodGet, "/api/jobs/"+id+"/result", nil))
	if translated.TargetLanguage != "es" || translated.Cues[0].TranslatedText == nil {
		t.Fatalf("unexpected result %+v", translated)
	}
}

func TestMultipartUpload(t *testing.T) {
	f := startedFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "pilot.srt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(testsupport.SampleSRT)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.WriteField("source_language", "en")
	_ = mw.WriteField("dry_run", "true")
	_ = mw.WriteField("target_language", "fr")
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.daemon.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	id := decode[api.CreateJobResponse](t, w).JobID
	status := f.waitFinished(t, id)
	if status.State != jobs.StateCompleted || status.Filename != "pilot.srt" || status.TargetLanguage != "fr" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIErrors(t *testing.T) {
	f := startedFixture(t)
	id := f.submit(t, api.CreateJobRequest{Content: testsupport.SampleSRT})
	f.waitFinished(t, id)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown job", http.MethodGet, "/api/jobs/missing", nil, http.StatusNotFound, "job_not_found"},
		{"unknown cue", http.MethodGet, "/api/jobs/" + id + "/cues/99/suggestions", nil, http.StatusNotFound, "cue_not_found"},
		{"cue index not a number", http.MethodGet, "/api/jobs/" + id + "/cues/two/suggestions", nil, http.StatusBadRequest, "invalid_request"},
		{"unknown fix type", http.MethodPost, "/api/jobs/" + id + "/cues/1/fix", api.FixRequest{FixType: "rewrite"}, http.StatusBadRequest, "invalid_request"},
		{"fix on clean cue", http.MethodPost, "/api/jobs/" + id + "/cues/1/fix", api.FixRequest{FixType: "reflow"}, http.StatusConflict, "stale_fix"},
		{"empty content", http.MethodPost, "/api/jobs", api.CreateJobRequest{Content: " "}, http.StatusBadRequest, "invalid_request"},
		{"unknown download format", http.MethodGet, "/api/jobs/" + id + "/download/ass", nil, http.StatusBadRequest, "invalid_request"},
		{"bad review decision", http.MethodPost, "/api/jobs/" + id + "/review", api.ReviewRequest{Decision: "maybe"}, http.StatusBadRequest, "invalid_decision"},
		{"unknown field", http.MethodPost, "/api/jobs/" + id + "/autofix", map[string]any{"budget": 3}, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
			if body := decode[api.ErrorResponse](t, w); body.Code != tc.code || body.Error == "" {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}
}

func TestAuthToken(t *testing.T) {
	f := startedFixture(t, testsupport.WithAPIToken("secret"))

	w := f.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.daemon.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	f.daemon.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestHealthAndMemoryStats(t *testing.T) {
	f := startedFixture(t)

	health := decode[api.HealthResponse](t, f.do(t, http.MethodGet, "/api/health", nil))
	if health.Status != "ok" || health.Provider != "mock" || health.Version != "test" || health.StartedAt == "" {
		t.Fatalf("unexpected health %+v", health)
	}
	if health.Database == nil || !health.Database.IntegrityCheck || !health.Workflow.Running {
		t.Fatalf("unexpected health detail %+v", health)
	}
	if len(health.Workflow.StageHealth) != 5 {
		t.Fatalf("expected five stages, got %+v", health.Workflow.StageHealth)
	}

	stats := decode[jobstore.MemoryStats](t, f.do(t, http.MethodGet, "/api/translation-memory/stats", nil))
	if stats.TotalEntries != 0 || stats.LanguagePairs == nil {
		t.Fatalf("unexpected memory stats %+v", stats)
	}
}

func TestLogsEndpointFiltersByJob(t *testing.T) {
	f := startedFixture(t)
	id := f.submit(t, api.CreateJobRequest{Content: testsupport.SampleSRT})
	f.waitFinished(t, id)

	page := decode[api.LogStreamResponse](t, f.do(t, http.MethodGet, "/api/logs?job="+id+"&limit=256", nil))
	if len(page.Events) == 0 || page.Next == 0 {
		t.Fatalf("expected job log events, got %+v", page)
	}
	for _, evt := range page.Events {
		if evt.JobID != id {
			t.Fatalf("unexpected event for job %q", evt.JobID)
		}
	}

	tail := decode[api.LogStreamResponse](t, f.do(t, http.MethodGet, "/api/logs?tail=1&limit=2", nil))
	if len(tail.Events) != 2 {
		t.Fatalf("expected two tailed events, got %d", len(tail.Events))
	}
}

func TestMultiLanguageJobEndpoints(t *testing.T) {
	f := startedFixture(t)
	w := f.do(t, http.MethodPost, "/api/jobs/multi", api.CreateMultiJobRequest{
		Filename:        "episode.srt",
		Content:         testsupport.SampleSRT,
		SourceLanguage:  "en",
		TargetLanguages: []string{"es,fr"},
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("create multi: %d %s", w.Code, w.Body.String())
	}
	created := decode[api.CreateMultiJobResponse](t, w)
	if created.ParentJobID == "" || len(created.ChildJobs) != 2 {
		t.Fatalf("unexpected multi response %+v", created)
	}
	if got := w.Header().Get("Location"); got != "/api/jobs/multi/"+created.ParentJobID {
		t.Fatalf("unexpected location %q", got)
	}
	for lang, id := range created.ChildJobs {
		if status := f.waitFinished(t, id); status.State != jobs.StateCompleted || status.TargetLanguage != lang {
			t.Fatalf("child %s: unexpected status %+v", lang, status)
		}
	}

	w = f.do(t, http.MethodGet, "/api/jobs/multi/"+created.ParentJobID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("multi status: %d %s", w.Code, w.Body.String())
	}
	group := decode[jobs.GroupStatus](t, w)
	if group.State != jobs.StateCompleted || group.Progress != 100 || len(group.Children) != 2 {
		t.Fatalf("unexpected group status %+v", group)
	}
	if group.Children["fr"].JobID != created.ChildJobs["fr"] {
		t.Fatalf("children keyed by language: %+v", group.Children)
	}

	w = f.do(t, http.MethodGet, "/api/jobs/multi/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown parent, got %d", w.Code)
	}
	if body := decode[api.ErrorResponse](t, w); body.Code != "job_group_not_found" {
		t.Fatalf("unexpected error body %+v", body)
	}

	w = f.do(t, http.MethodPost, "/api/jobs/multi", api.CreateMultiJobRequest{Content: testsupport.SampleSRT, SourceLanguage: "en"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without targets, got %d", w.Code)
	}
}

func TestPendingReviewEndpoints(t *testing.T) {
	f := startedFixture(t)
	first := f.submit(t, api.CreateJobRequest{Filename: "a.srt", Content: testsupport.SampleSRT})
	second := f.submit(t, api.CreateJobRequest{Filename: "b.srt", Content: testsupport.SampleSRT})
	f.waitFinished(t, first)
	f.waitFinished(t, second)

	if w := f.do(t, http.MethodPost, "/api/jobs/"+first+"/review", api.ReviewRequest{Decision: "approve"}); w.Code != http.StatusOK {
		t.Fatalf("review: %d %s", w.Code, w.Body.String())
	}

	pending := decode[api.PendingReviewsResponse](t, f.do(t, http.MethodGet, "/api/reviews/pending", nil))
	if pending.Count != 1 || len(pending.Jobs) != 1 || pending.Jobs[0].JobID != second {
		t.Fatalf("unexpected pending reviews %+v", pending)
	}

	approved := decode[api.JobListResponse](t, f.do(t, http.MethodGet, "/api/jobs?review=approved", nil))
	if len(approved.Jobs) != 1 || approved.Jobs[0].JobID != first {
		t.Fatalf("unexpected approved list %+v", approved)
	}

	w := f.do(t, http.MethodGet, "/api/jobs?review=someday", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown review filter, got %d", w.Code)
	}
}
