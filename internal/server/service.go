package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/export"
)

// Extractor runs one uploaded document through the extraction pipeline.
type Extractor interface {
	Process(ctx context.Context, path string) (*aggregate.Response, error)
}

// Server is the HTTP surface over the extraction pipeline.
type Server struct {
	cfg      common.ServerConfig
	pipeline Extractor
	exporter *export.Service
	logger   *slog.Logger
}

func New(cfg common.ServerConfig, pipeline Extractor, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, pipeline: pipeline, exporter: exporter, logger: logger}
}

// Router assembles the route table with CORS and request-ID middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(s.requestID)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Post("/extract", s.handleExtract)

	return r
}

// requestID tags each request with a correlation ID, echoed back in the
// X-Request-ID header.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		w.Header().Set("X-Request-ID", common.RequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "coc-extractor",
		"extract": "POST /extract (multipart field \"file\")",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// writeError maps an error chain to an HTTP status and a stable JSON body.
func writeError(w http.ResponseWriter, err error) {
	kind := common.ErrorKind(err)
	writeJSON(w, statusForKind(kind), errorBody{
		ErrorKind: kind,
		Message:   common.ErrorMessage(err),
	})
}

func statusForKind(kind string) int {
	switch kind {
	case common.KindInvalidInput:
		return http.StatusBadRequest
	case common.KindUpstreamFailure, common.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
