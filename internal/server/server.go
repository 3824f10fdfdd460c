// Package server exposes the dispatcher over HTTP: a /graphql endpoint
// accepting POST and GET, Prometheus metrics and a health probe.
package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/core"
)

// storeHeader selects the sheet partition for one request.
const storeHeader = "store"

type Option func(*Server)

type Server struct {
	dispatcher *core.Dispatcher
	logger     *zap.Logger
	registry   *prometheus.Registry
	handler    http.Handler
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsRegistry exposes the given registry on /metrics.
func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

func New(dispatcher *core.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.Post("/graphql", s.serveGraphQL)
	r.Get("/graphql", s.serveGraphQL)

	s.handler = r
	return s
}

// Handler returns the root HTTP handler, for both the standalone listener
// and the lambda adapter.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), req)
	s.writeJSON(w, resp.StatusCode, resp.Body)
}

// decodeRequest accepts the POST body form and the GET query-parameter
// form; the latter can only carry variables as a JSON-encoded string.
func decodeRequest(r *http.Request) (core.Request, error) {
	var req core.Request

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, err
		}
	} else {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if variables := q.Get("variables"); variables != "" {
			req.Variables = variables
		}
	}

	req.Store = r.Header.Get(storeHeader)
	req.Token = r.Header.Get("Authorization")
	return req, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}
