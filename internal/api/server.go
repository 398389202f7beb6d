package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dgallion1/hilens/internal/answer"
	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/config"
	"github.com/dgallion1/hilens/internal/pdfpage"
	"github.com/dgallion1/hilens/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for hilens.
type Server struct {
	router chi.Router
	svc    *pipeline.Service
	log    *slog.Logger
	cfg    config.Server
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *pipeline.Service, log *slog.Logger, cfg config.Server) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/stats/latency", s.handleLatencyStats)

		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/chunkset", s.handleChunkSet)

			for _, kind := range []chunkset.Kind{chunkset.KindTable, chunkset.KindFigure} {
				seg := "/" + string(kind) + "s/{label}"
				r.Get(seg, s.handleRegion(kind))
				r.Get(seg+"/image", s.handleRegionImage(kind))
			}
			r.Get("/tables/{label}/preview", s.handlePreview)

			r.Post("/crop", s.handleCrop)
			r.Get("/search", s.handleSearch)
			r.Post("/ask", s.handleAsk)
			r.Get("/export.xlsx", s.handleExport)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, pdfpage.ErrUnreadable):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, answer.ErrNoModel):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	jsonError(w, err.Error(), code)
}
