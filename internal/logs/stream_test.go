package logs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"subconform/internal/api"
	"subconform/internal/logging"
	"subconform/internal/logs"
)

func TestStreamUsesAPIWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tail") != "1" || r.URL.Query().Get("job") != "job-7" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []logging.LogEvent{{Message: "job started", JobID: "job-7"}, {Message: "job completed", JobID: "job-7"}},
			Next:   2,
		})
	}))
	defer srv.Close()

	client, _ := logs.NewStreamClient(srv.URL, "")
	var got []string
	printed, err := logs.Stream(context.Background(), client, logs.Options{Lines: 10, JobID: "job-7"},
		func(evt logging.LogEvent) { got = append(got, evt.Message) },
		func(string) { t.Error("file fallback used while the API answered") },
	)
	if err != nil || !printed {
		t.Fatalf("stream: printed=%v err=%v", printed, err)
	}
	if len(got) != 2 || got[1] != "job completed" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestStreamFallsBackToLogFile(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\n")
	client, _ := logs.NewStreamClient(closedAddress(t), "")

	var got []string
	printed, err := logs.Stream(context.Background(), client, logs.Options{Lines: 2, FilePath: path},
		func(logging.LogEvent) { t.Error("unexpected API event") },
		func(line string) { got = append(got, line) },
	)
	if err != nil || !printed {
		t.Fatalf("stream: printed=%v err=%v", printed, err)
	}
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Fatalf("unexpected lines %v", got)
	}

	_, err = logs.Stream(context.Background(), client, logs.Options{Lines: 2, FilePath: path, Component: "workflow"}, nil, nil)
	if !errors.Is(err, logs.ErrFiltersRequireAPI) {
		t.Fatalf("expected filters to require the API, got %v", err)
	}

	_, err = logs.Stream(context.Background(), nil, logs.Options{Lines: 2}, nil, nil)
	if !errors.Is(err, logs.ErrAPIUnavailable) {
		t.Fatalf("expected unavailable without a log file, got %v", err)
	}
}
