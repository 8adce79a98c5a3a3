// Package reportserver serves a benchmark output directory over HTTP.
package reportserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justjake/querybench/pkg/resultsdb"
)

// defaultRunLimit caps /api/runs when no limit is given.
const defaultRunLimit = 20

// RunLister lists recorded runs, e.g. a *resultsdb.Store.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]resultsdb.RunSummary, error)
}

// Server serves the reports under Dir.
type Server struct {
	Dir    string
	Logger *slog.Logger

	// Runs, when set, backs /api/runs.
	Runs RunLister

	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New creates a server for dir.
func New(dir string, logger *slog.Logger) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		Dir:      dir,
		Logger:   logger,
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "querybench_report_requests_total",
				Help: "HTTP requests served by the report server",
			},
			[]string{"code"},
		),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.CleanPath)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestLogger(
		&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.Logger.Handler(), slog.LevelDebug),
			NoColor: true,
		},
	))
	router.Use(middleware.NoCache)
	router.Use(middleware.Heartbeat("/ping"))
	router.Use(s.countRequests)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index.html", http.StatusFound)
	})
	router.Get("/index.html", s.serveIndex)
	router.Get("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP)
	router.Get("/api/runs", s.listRuns)
	router.Get("/api/routes", routeListHandler(router))
	router.Handle("/*", http.FileServer(http.Dir(s.Dir)))
	return router
}

// serveIndex serves the report page itself; http.FileServer would
// redirect /index.html back to /.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(s.Dir, "index.html"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no results database configured"))
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.Runs.RecentRuns(r.Context(), limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, resultsdb.ErrPermissionDenied) {
			status = http.StatusForbidden
		}
		s.writeError(w, status, err)
		return
	}
	if runs == nil {
		runs = []resultsdb.RunSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func routeListHandler(router chi.Routes) http.HandlerFunc {
	type routePath struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var routes []routePath
		_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			routes = append(routes, routePath{Method: method, Path: route})
			return nil
		})
		enc, _ := json.Marshal(map[string]any{"routes": routes})
		w.Header().Set("Content-Type", "application/json")
		w.Write(enc)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	enc, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(enc)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.Logger.Warn("request failed", "status", status, "error", err)
	enc, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(enc)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.Logger.Info("serving reports", "addr", addr, "dir", s.Dir)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
