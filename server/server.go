// Package server exposes the rendering engine over HTTP.
//
// Routes:
//
//	GET  /health
//	POST /v1/templates/validate
//	POST /v1/templates/preview
//	POST /v1/documents/render
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/datactx"
)

// DocumentSource loads stored documents. *store.Source implements it.
type DocumentSource interface {
	Load(ctx context.Context, kind string, id uint) (*datactx.Snapshot, error)
}

// Config holds request limits.
type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Server holds the handlers' dependencies.
type Server struct {
	engine *invoicepdf.Engine
	docs   DocumentSource
	log    zerolog.Logger
	cfg    Config
}

// New returns a Server. docs may be nil, in which case requests naming a
// document id are rejected.
func New(engine *invoicepdf.Engine, docs DocumentSource, log zerolog.Logger, cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	return &Server{engine: engine, docs: docs, log: log, cfg: cfg}
}

// Routes returns the router with all routes configured.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "invoicepdf"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/templates/validate", s.validate)
		r.Post("/templates/preview", s.preview)
		r.Post("/documents/render", s.render)
	})
	return r
}

// requestLogger logs one line per request with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
