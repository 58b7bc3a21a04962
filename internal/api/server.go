package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/pipeline"
	"github.com/docvoice/docvoice/internal/store"
	"github.com/docvoice/docvoice/internal/translate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const Version = "1.0.0"

// Server is the HTTP API server for docvoice.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	translator   *translate.Client
	store        *store.Client
	log          *slog.Logger
	cfg          config.Config
	startTime    time.Time
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, translator *translate.Client, st *store.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		translator:   translator,
		store:        st,
		log:          log,
		cfg:          cfg,
		startTime:    time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/health/live", s.handleLive)
	r.Get("/metrics", s.handleMetrics)

	r.Get("/files", s.handleListFiles)
	r.Delete("/files/{fileID}", s.handleDeleteFile)

	r.Post("/process-document", s.handleProcessDocument)

	s.router = r
}
