package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"subconform/internal/api"
	"subconform/internal/config"
	"subconform/internal/logging"
	"subconform/internal/services"
)

const (
	// maxJSONBody bounds JSON request bodies, which carry whole subtitle files.
	maxJSONBody = 32 << 20
	// maxUploadBody bounds multipart uploads including form overhead.
	maxUploadBody = 64 << 20
)

// silentPaths are polling endpoints logged only when they fail.
var silentPaths = map[string]bool{
	"/api/health": true,
	"/api/logs":   true,
}

type apiServer struct {
	bind    string
	token   string
	origins []string
	logger  *slog.Logger
	daemon  *Daemon
	jobs    *api.JobService

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		token:   cfg.Paths.APIToken,
		origins: cfg.Paths.APIAllowedOrigins,
		logger:  logger,
		daemon:  d,
		jobs:    d.service,
	}
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(corsOptions(s.origins)))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.token))

		r.Get("/health", s.handleHealth)
		r.Get("/logs", s.handleLogs)
		r.Get("/translation-memory/stats", s.handleMemoryStats)
		r.Get("/reviews/pending", s.handlePendingReviews)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Get("/", s.handleListJobs)
			r.Post("/multi", s.handleCreateMultiJob)
			r.Get("/multi/{parentID}", s.handleMultiJobStatus)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleJobStatus)
				r.Delete("/", s.handleDeleteJob)
				r.Get("/result", s.handleJobResult)
				r.Get("/qc-report", s.handleQCReport)
				r.Get("/download/{format}", s.handleDownload)
				r.Post("/autofix", s.handleAutoFix)
				r.Post("/gender", s.handleGenderAll)
				r.Post("/review", s.handleReview)
				r.Route("/cues/{index}", func(r chi.Router) {
					r.Get("/suggestions", s.handleSuggestions)
					r.Post("/fix", s.handleApplyFix)
					r.Get("/gender", s.handleCueGender)
					r.Post("/gender", s.handleSetCueGender)
				})
			})
		})
	})
	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCreds := true
	for _, o := range origins {
		if o == "*" {
			allowCreds = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}

// requestLogger tags the request context with the chi request id and logs
// each completed request.
func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := services.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if silentPaths[r.URL.Path] && status < 400 {
			return
		}
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelWarn
		}
		logging.WithContext(ctx, s.log()).Log(ctx, level, "api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.log().Info("api server disabled", logging.String(logging.FieldEventType, "api_disabled"))
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.daemon.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

// writeError maps a service error to its status and JSON body.
func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := api.StatusCode(err)
	if status >= 500 {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the daemon log for the failing component"),
		)
	}
	s.writeJSON(w, status, api.ErrorBody(err))
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
