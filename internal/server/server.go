// Package server exposes conversions over HTTP. Each request body is one PDF
// and the response streams its fragments as multipart/form-data.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf-converter/internal/config"
	"github.com/spherical/pdf-converter/internal/convert"
	"github.com/spherical/pdf-converter/internal/fragment"
	"github.com/spherical/pdf-converter/internal/observability"
)

const (
	// HeaderOptions carries the options JSON when the query has none.
	HeaderOptions = "X-Conversion-Options"

	// TrailerOutcome reports "done" or the failure kind after the stream.
	TrailerOutcome = "X-Conversion-Outcome"
)

// Server serves conversions.
type Server struct {
	cfg    config.ServerConfig
	svc    *convert.Service
	logger *observability.Logger
}

// New creates a server backed by svc.
func New(cfg config.ServerConfig, svc *convert.Service, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger.WithOperation("serve"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pdf-converter"}`))
	})

	r.Post("/convert", s.handleConvert)

	return r
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().
			Str("addr", s.cfg.Addr).
			Int64("max_body_bytes", s.cfg.MaxBodyBytes).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdown)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("Graceful shutdown failed")
			if err := srv.Close(); err != nil {
				return errors.Wrap(err, "forced shutdown")
			}
		}
		s.logger.Info().Msg("Server stopped")
		return nil
	})

	return g.Wait()
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	boundary := r.URL.Query().Get("boundary")
	if boundary == "" {
		boundary = uuid.NewString()
	}

	options := r.URL.Query().Get("options")
	if options == "" {
		options = r.Header.Get(HeaderOptions)
	}

	fw, err := fragment.NewWriter(w, boundary)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid boundary")
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	w.Header().Set("Content-Type", fw.ContentType())
	w.Header().Set("Trailer", TrailerOutcome)
	w.WriteHeader(http.StatusOK)

	outcome, err := s.svc.Run(r.Context(), convert.Request{
		Boundary: boundary,
		Options:  json.RawMessage(options),
		Input:    body,
	}, fw)
	if err != nil {
		s.logger.With().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Logger().
			Warn().
			Err(err).
			Msg("Client went away during conversion")
		return
	}

	result := "done"
	if kind := convert.KindOf(outcome); kind != "" {
		result = string(kind)
	}
	w.Header().Set(TrailerOutcome, result)
}

// requestLogger logs one line per request through the structured logger;
// chi's own logger middleware writes to the standard streams.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
