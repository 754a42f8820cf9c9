package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"subconform/internal/api"
	"subconform/internal/logging"
	"subconform/internal/subtitles"
)

func (s *apiServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var (
		req api.CreateJobRequest
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = decodeUpload(w, r)
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.jobs.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+resp.JobID)
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleCreateMultiJob(w http.ResponseWriter, r *http.Request) {
	var (
		req api.CreateMultiJobRequest
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = decodeMultiUpload(w, r)
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.jobs.CreateMulti(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/multi/"+resp.ParentJobID)
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleMultiJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.jobs.MultiStatus(chi.URLParam(r, "parentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// decodeMultiUpload reads a multi-language upload. target_languages is a
// comma-separated list and glossaries a JSON object keyed by language.
func decodeMultiUpload(w http.ResponseWriter, r *http.Request) (api.CreateMultiJobRequest, error) {
	single, err := decodeUpload(w, r)
	if err != nil {
		return api.CreateMultiJobRequest{}, err
	}
	req := api.CreateMultiJobRequest{
		Filename:        single.Filename,
		Content:         single.Content,
		Format:          single.Format,
		SourceLanguage:  single.SourceLanguage,
		TargetLanguages: []string{r.FormValue("target_languages")},
		Constraints:     single.Constraints,
		DryRun:          single.DryRun,
		AutoFix:         single.AutoFix,
		AutoFixBudget:   single.AutoFixBudget,
		Glossary:        single.Glossary,
	}
	if value := strings.TrimSpace(r.FormValue("glossaries")); value != "" {
		if err := json.Unmarshal([]byte(value), &req.Glossaries); err != nil {
			return api.CreateMultiJobRequest{}, fmt.Errorf("%w: glossaries: %v", api.ErrInvalidRequest, err)
		}
	}
	return req, nil
}

// decodeUpload reads a multipart upload: the subtitle file in the "file"
// part and the remaining request fields as form values. Constraints and
// glossary are JSON-encoded form values.
func decodeUpload(w http.ResponseWriter, r *http.Request) (api.CreateJobRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		return api.CreateJobRequest{}, fmt.Errorf("%w: parse upload: %v", api.ErrInvalidRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return api.CreateJobRequest{}, fmt.Errorf("%w: file part is required", api.ErrInvalidRequest)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return api.CreateJobRequest{}, fmt.Errorf("%w: read upload: %v", api.ErrInvalidRequest, err)
	}

	req := api.CreateJobRequest{
		Filename:       header.Filename,
		Content:        string(content),
		Format:         r.FormValue("format"),
		SourceLanguage: r.FormValue("source_language"),
		TargetLanguage: r.FormValue("target_language"),
	}
	if req.DryRun, err = formBool(r, "dry_run"); err != nil {
		return api.CreateJobRequest{}, err
	}
	if req.AutoFix, err = formBool(r, "auto_fix"); err != nil {
		return api.CreateJobRequest{}, err
	}
	if value := strings.TrimSpace(r.FormValue("auto_fix_budget")); value != "" {
		if req.AutoFixBudget, err = strconv.Atoi(value); err != nil {
			return api.CreateJobRequest{}, fmt.Errorf("%w: auto_fix_budget: %v", api.ErrInvalidRequest, err)
		}
	}
	if value := strings.TrimSpace(r.FormValue("constraints")); value != "" {
		var constraints subtitles.Constraints
		if err := json.Unmarshal([]byte(value), &constraints); err != nil {
			return api.CreateJobRequest{}, fmt.Errorf("%w: constraints: %v", api.ErrInvalidRequest, err)
		}
		req.Constraints = &constraints
	}
	if value := strings.TrimSpace(r.FormValue("glossary")); value != "" {
		if err := json.Unmarshal([]byte(value), &req.Glossary); err != nil {
			return api.CreateJobRequest{}, fmt.Errorf("%w: glossary: %v", api.ErrInvalidRequest, err)
		}
	}
	return req, nil
}

func formBool(r *http.Request, key string) (bool, error) {
	value := strings.TrimSpace(r.FormValue(key))
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", api.ErrInvalidRequest, key, err)
	}
	return b, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", api.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: decode body: %v", api.ErrInvalidRequest, err)
	}
	return nil
}

func cueIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: cue index %q is not a number", api.ErrInvalidRequest, raw)
	}
	return index, nil
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	review := strings.TrimSpace(r.URL.Query().Get("review"))
	if review == "" {
		s.writeJSON(w, http.StatusOK, s.jobs.List())
		return
	}
	resp, err := s.jobs.ListByReview(review)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handlePendingReviews(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.jobs.PendingReviews())
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.jobs.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleJobResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.jobs.Result(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleQCReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.jobs.QCReport(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.jobs.Download(chi.URLParam(r, "id"), chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := "application/x-subrip; charset=utf-8"
	if strings.HasSuffix(name, ".vtt") {
		contentType = "text/vtt; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log().Debug("download write failed", logging.Error(err))
	}
}

func (s *apiServer) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	index, err := cueIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.jobs.Suggestions(chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleApplyFix(w http.ResponseWriter, r *http.Request) {
	index, err := cueIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.FixRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.jobs.ApplyFix(r.Context(), chi.URLParam(r, "id"), index, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleAutoFix(w http.ResponseWriter, r *http.Request) {
	var req api.AutoFixRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	result, err := s.jobs.AutoFix(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleCueGender(w http.ResponseWriter, r *http.Request) {
	index, err := cueIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.jobs.Gender(chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *apiServer) handleSetCueGender(w http.ResponseWriter, r *http.Request) {
	index, err := cueIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.GenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.jobs.SetGender(r.Context(), chi.URLParam(r, "id"), index, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleGenderAll(w http.ResponseWriter, r *http.Request) {
	var req api.GenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.jobs.SetGenderAll(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleReview(w http.ResponseWriter, r *http.Request) {
	var req api.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.jobs.Review(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobs.MemoryStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	resp := api.HealthResponse{
		Status:    "ok",
		Version:   s.daemon.version,
		PID:       os.Getpid(),
		StartedAt: api.FormatTime(status.StartedAt),
		Provider:  s.daemon.provider,
		Workflow:  api.FromStatusSummary(status.Workflow),
	}
	db, err := s.daemon.store.CheckHealth(r.Context())
	if err != nil && db.Error == "" {
		db.Error = err.Error()
	}
	resp.Database = &db
	if db.Error != "" || !status.Running {
		resp.Status = "degraded"
	}
	for _, h := range resp.Workflow.StageHealth {
		if !h.Ready {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
