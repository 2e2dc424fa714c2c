// Package server exposes the published index over a small HTTP query API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
)

// Searcher runs queries against the notice index.
type Searcher interface {
	Search(ctx context.Context, params indexer.SearchParams) (*indexer.SearchResult, error)
}

// QueryEmbedder embeds free-text queries for the vector half of a search.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Server serves the search API.
type Server struct {
	searcher Searcher
	embedder QueryEmbedder
	port     int
}

// New creates a Server.
func New(cfg config.ServerConfig, searcher Searcher, embedder QueryEmbedder) *Server {
	return &Server{
		searcher: searcher,
		embedder: embedder,
		port:     cfg.Port,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/search", s.handleSearch)

	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.Int("port", s.port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch runs a hybrid query. The q parameter is embedded for the
// vector clause; an embedding failure degrades to lexical-only search
// rather than failing the request.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := indexer.SearchParams{
		Query:     q.Get("q"),
		CPVPrefix: q.Get("cpv"),
	}

	var err error
	if params.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if params.Size, err = intParam(q.Get("size"), 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid size")
		return
	}

	if lat, lng := q.Get("lat"), q.Get("lng"); (lat != "") != (lng != "") {
		writeError(w, http.StatusBadRequest, "lat and lng must be given together")
		return
	} else if lat != "" {
		latF, err1 := strconv.ParseFloat(lat, 64)
		lngF, err2 := strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		params.Lat, params.Lng = &latF, &lngF
		params.RadiusKM = 50
		if radius := q.Get("radius_km"); radius != "" {
			if params.RadiusKM, err = strconv.ParseFloat(radius, 64); err != nil {
				writeError(w, http.StatusBadRequest, "invalid radius_km")
				return
			}
		}
	}

	if params.From, err = dateParam(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		return
	}
	if params.To, err = dateParam(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		return
	}

	if params.Query != "" {
		vector, err := s.embedder.EmbedQuery(r.Context(), params.Query)
		if err != nil {
			zap.L().Warn("query embedding failed, lexical-only search", zap.Error(err))
		} else {
			params.Vector = vector
		}
	}

	result, err := s.searcher.Search(r.Context(), params)
	if err != nil {
		zap.L().Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func dateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
