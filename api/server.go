// Package api exposes the capture pipeline over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/collector"
	"github.com/zombar/collector/db"
	"github.com/zombar/collector/metrics"
	"github.com/zombar/collector/models"
	"github.com/zombar/collector/storage"
)

// Store defines the persistence operations the API server needs
type Store interface {
	collector.Store

	GetByID(id string) (*models.Content, error)
	TouchLastAccessed(id string) error
	List(opts db.ListOptions) ([]*models.Content, int, error)
	UpdateContent(id string, fields db.UpdateFields) error
	DeleteByID(id string) error
	CreateTag(name, description string) (*models.Tag, error)
	ListTags(limit int) ([]*models.Tag, error)
	Search(opts db.SearchOptions) ([]*models.Content, error)
	GetStats(ctx context.Context) (*db.Stats, error)
	SaveInsight(insight *models.Insight) error
	ListInsights(limit int) ([]*models.Insight, error)
	RecentSummaries(since time.Time, limit int) ([]string, error)
	CountContents() (int, error)
}

// Server represents the API server
type Server struct {
	store     Store
	database  *db.DB // nil when constructed with an external store
	collector *collector.Collector
	objects   storage.ObjectStore
	addr      string
	server    *http.Server
	mux       *http.ServeMux

	corsEnabled bool
	authToken   string
	version     string

	registry       *prometheus.Registry
	httpMetrics    *metrics.HTTPMetrics
	captureMetrics *metrics.CaptureMetrics
	dbMetrics      *metrics.DatabaseMetrics
}

// Config contains server configuration
type Config struct {
	Addr            string
	AuthToken       string
	Version         string
	DBConfig        db.Config
	CollectorConfig collector.Config
	StorageConfig   storage.Config
	S3Config        *storage.S3Config // when set, archives go to S3 instead of the filesystem
	CORSEnabled     bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		CollectorConfig: collector.DefaultConfig(),
		StorageConfig:   storage.DefaultConfig(),
		CORSEnabled:     true,
	}
}

// NewServer creates a new API server with its own database connection and
// object store.
func NewServer(config Config) (*Server, error) {
	database, err := db.New(config.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var objects storage.ObjectStore
	if config.S3Config != nil {
		objects, err = storage.NewS3(context.Background(), *config.S3Config)
	} else {
		objects, err = storage.NewFS(config.StorageConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	s := newServer(config, database, objects)
	s.database = database
	return s, nil
}

// newServer wires a server around an existing store and object store
func newServer(config Config, store Store, objects storage.ObjectStore) *Server {
	registry := prometheus.NewRegistry()

	s := &Server{
		store:          store,
		collector:      collector.New(config.CollectorConfig, store, objects),
		objects:        objects,
		addr:           config.Addr,
		mux:            http.NewServeMux(),
		corsEnabled:    config.CORSEnabled,
		authToken:      config.AuthToken,
		version:        config.Version,
		registry:       registry,
		httpMetrics:    metrics.NewHTTPMetrics(registry, "collector"),
		captureMetrics: metrics.NewCaptureMetrics(registry, "collector"),
		dbMetrics:      metrics.NewDatabaseMetrics(registry, "collector"),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      otelhttp.NewHandler(s.middleware(s.mux), "collector-api"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // URL fetch plus LLM analysis can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/version", s.handleVersion)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("/api/content", s.handleContent)
	s.mux.HandleFunc("/api/content/", s.handleContentByID) // Handles /api/content/{id}
	s.mux.HandleFunc("/api/contents", s.handleListContents)
	s.mux.HandleFunc("/api/email", s.handleEmail)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/tags", s.handleTags)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/insights", s.handleInsights)
	s.mux.HandleFunc("/api/insights/generate", s.handleGenerateInsight)
}

// Start starts the API server
func (s *Server) Start() error {
	slog.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down API server")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

// DB returns the underlying database for metrics collection.
// Nil when the server was built around an external store.
func (s *Server) DB() *db.DB {
	return s.database
}

// UpdateDBMetrics refreshes the database pool gauges
func (s *Server) UpdateDBMetrics() {
	if s.database != nil {
		s.dbMetrics.UpdateDBStats(s.database.DB())
	}
}

// publicPaths are reachable without a bearer token
var publicPaths = map[string]bool{
	"/api/health":  true,
	"/api/version": true,
	"/metrics":     true,
}

// middleware applies CORS, authentication, logging and metrics to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		if !publicPaths[r.URL.Path] && !s.authorized(r) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.httpMetrics.ObserveRequest(r.Method, r.URL.Path, rec.status, elapsed.Seconds())
		if r.URL.Path != "/api/health" && r.URL.Path != "/metrics" {
			slog.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed)
		}
	})
}

// authorized checks the bearer token. A server without a configured token
// rejects everything rather than running open.
func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondData sends a success envelope
func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
