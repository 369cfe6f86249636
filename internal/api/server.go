package api

import (
	"TrafficParser/internal/export"
	"TrafficParser/internal/filter"
	"TrafficParser/internal/metrics"
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the store over a read-only HTTP API.
type Server struct {
	store    store.Store
	log      zerolog.Logger
	metrics  *metrics.Metrics
	exporter *export.Exporter
	router   *mux.Router
}

// NewServer wires the routes. m may be nil.
func NewServer(s store.Store, log zerolog.Logger, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	srv := &Server{
		store:    s,
		log:      log,
		metrics:  m,
		exporter: export.New(log, m),
		router:   mux.NewRouter(),
	}

	srv.router.Use(srv.instrument)
	srv.router.HandleFunc("/healthz", srv.healthHandler).Methods(http.MethodGet)
	srv.router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := srv.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/packets", srv.packetsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/statistics", srv.statisticsHandler).Methods(http.MethodGet)
	return srv
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// packetsHandler answers with an export bundle for the query-string filters.
// stats=true adds the statistics block.
func (s *Server) packetsHandler(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	withStats, _ := strconv.ParseBool(r.URL.Query().Get("stats"))

	bundle, err := s.bundle(r.Context(), criteria, withStats)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bundle, err := s.bundle(r.Context(), criteria, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, model.StatisticsReport{Metadata: bundle.Metadata, Statistics: bundle.Statistics})
}

func (s *Server) bundle(ctx context.Context, criteria model.FilterCriteria, withStats bool) (*model.ExportBundle, error) {
	cursor, err := s.store.Query(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return s.exporter.Build(cursor, criteria, withStats)
}

// criteriaFromQuery reads the same filters the CLI accepts. port may repeat
// or hold a comma-separated list.
func criteriaFromQuery(r *http.Request) (model.FilterCriteria, error) {
	q := r.URL.Query()
	opts := filter.Options{
		Protocol: q.Get("protocol"),
		IP:       q.Get("ip"),
		Ports:    q["port"],
		MinSize:  q.Get("min_size"),
		MaxSize:  q.Get("max_size"),
		Since:    q.Get("since"),
		Until:    q.Get("until"),
	}
	return opts.Criteria()
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrConfiguration) {
		status = http.StatusBadRequest
	} else {
		s.log.Error().Err(err).Msg("API request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route template and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.log.Debug().Str("method", r.Method).Str("route", route).Int("status", rec.status).Msg("API request")
	})
}
