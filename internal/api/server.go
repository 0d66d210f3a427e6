package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"evprobe/internal/logging"
	"evprobe/internal/metrics"
	"evprobe/internal/probe"
	"evprobe/internal/services"
)

var errOutsideMediaRoot = errors.New("path is outside the configured media root")

// Options configures a Server.
type Options struct {
	Prober    *probe.Prober
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	MediaRoot string
	// FFprobe is reported by /healthz.
	FFprobe string
}

// Server serves probe lookups over HTTP.
type Server struct {
	prober    *probe.Prober
	metrics   *metrics.Metrics
	logger    *slog.Logger
	mediaRoot string
	ffprobe   string
}

// NewServer constructs a Server. Metrics may be nil to disable instrumentation.
func NewServer(opts Options) *Server {
	root := strings.TrimSpace(opts.MediaRoot)
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &Server{
		prober:    opts.Prober,
		metrics:   opts.Metrics,
		logger:    logging.NewComponentLogger(opts.Logger, "api"),
		mediaRoot: root,
		ffprobe:   opts.FFprobe,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	if s.metrics != nil {
		r.Use(RequestMetrics(s.metrics))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler(s.refreshGauges))
	}
	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/streams", s.stream)
		r.Get("/streams/all", s.streams)
		r.Get("/format", s.format)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server listening", logging.String("bind", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) refreshGauges() {
	entries, err := s.prober.Cache().Entries(context.Background())
	if err != nil {
		s.logger.Debug("cache size unavailable", logging.Error(err))
		return
	}
	s.metrics.SetCacheEntries(len(entries))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := HealthResponse{Status: "ok", FFprobe: "missing"}
	if s.ffprobe != "" {
		if _, err := exec.LookPath(s.ffprobe); err == nil {
			status.FFprobe = "available"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	ref, err := s.reference(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	selector := strings.TrimSpace(r.URL.Query().Get("select"))
	if selector == "" {
		selector = probe.DefaultSelector
	}
	ctx := services.WithOperation(r.Context(), "stream")
	stream, err := s.prober.NewSession(ref).Stream(ctx, selector)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StreamResponse{
		File:     ref.Identity(),
		Selector: selector,
		Stream:   FromStream(stream),
	})
}

func (s *Server) streams(w http.ResponseWriter, r *http.Request) {
	ref, err := s.reference(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := services.WithOperation(r.Context(), "streams")
	streams, err := s.prober.NewSession(ref).Streams(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStreamsResponse(ref.Identity(), streams))
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) {
	ref, err := s.reference(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := services.WithOperation(r.Context(), "format")
	format, err := s.prober.NewSession(ref).Format(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FormatResponse{File: ref.Identity(), Format: FromFormat(format)})
}

// reference builds a FileReference from the query string. Relative paths are
// resolved against the media root.
func (s *Server) reference(r *http.Request) (probe.FileReference, error) {
	query := r.URL.Query()
	path := strings.TrimSpace(query.Get("path"))
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "parse request", "path query parameter is required", nil)
	}
	path, err := s.confine(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(query.Get("name"))
	persistent := false
	if raw := query.Get("persistent"); raw != "" {
		persistent, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "api", "parse request", "persistent must be a boolean", err)
		}
	}
	if persistent {
		return probe.Persistent{Name: name, Path: path}, nil
	}
	return probe.Transient{Name: name, Path: path}, nil
}

func (s *Server) confine(path string) (string, error) {
	if s.mediaRoot == "" {
		return filepath.Clean(path), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.mediaRoot, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.mediaRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideMediaRoot
	}
	return path, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if errors.Is(err, errOutsideMediaRoot) {
		status = http.StatusForbidden
	}
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.Error(err),
			logging.Int("status", status))
	} else {
		logger.Debug("request rejected", logging.Error(err), logging.Int("status", status))
	}
	requestID, _ := services.RequestIDFromContext(r.Context())
	writeJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: requestID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
