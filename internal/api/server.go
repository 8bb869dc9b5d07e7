// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/metrics"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
)

// Discoverer registers a new domain and enriches it.
type Discoverer interface {
	Create(ctx context.Context, req pipeline.DiscoverRequest) (string, error)
	Enrich(ctx context.Context, companyID string) (*pipeline.EnrichmentReport, error)
}

// Reader is the read side of the store used by the API.
type Reader interface {
	Ping(ctx context.Context) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, filter store.CompanyFilter) ([]model.Company, error)
	ListRawRecords(ctx context.Context, companyID string) ([]model.RawEnrichmentRecord, error)
	ListEvents(ctx context.Context, companyID string) ([]model.EventLogEntry, error)
}

// Server holds the HTTP handlers.
type Server struct {
	discover Discoverer
	reader   Reader
	origins  []string
	// base is the context enrichment runs under once a webhook has
	// returned; it outlives the request.
	base context.Context
	// async runs accepted enrichments. Tests replace it to run inline.
	async func(fn func())
}

// NewServer creates a Server. Enrichments started by the webhook run under
// base.
func NewServer(base context.Context, d Discoverer, r Reader, corsOrigins []string) *Server {
	return &Server{
		discover: d,
		reader:   r,
		origins:  corsOrigins,
		base:     base,
		async:    func(fn func()) { go fn() },
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/webhook/enrich", s.enrich)

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", s.listCompanies)
		r.Get("/{id}", s.getCompany)
		r.Get("/{id}/raw", s.rawRecords)
		r.Get("/{id}/events", s.events)
	})
	return r
}

type enrichRequest struct {
	Domain string `json:"domain"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.reader.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// enrich registers the domain synchronously and enriches it in the
// background. The 202 body carries the new company ID; a domain already on
// file returns 409 with the existing one.
func (s *Server) enrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	domain, err := model.NormalizeDomain(req.Domain)
	if err != nil {
		writeError(w, http.StatusBadRequest, "domain is missing or invalid")
		return
	}

	dreq := pipeline.DiscoverRequest{Domain: domain, Name: req.Name, SourceTag: req.Source}
	if dreq.SourceTag == "" {
		dreq.SourceTag = "webhook"
	}
	id, err := s.discover.Create(r.Context(), dreq)
	switch {
	case errors.Is(err, pipeline.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":      "company already exists",
			"company_id": id,
		})
		return
	case err != nil:
		zap.L().Error("api: create company failed", zap.String("domain", domain), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}

	s.async(func() {
		if _, err := s.discover.Enrich(s.base, id); err != nil {
			zap.L().Warn("api: webhook enrichment failed",
				zap.String("domain", domain),
				zap.String("company_id", id),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("api: webhook enrichment complete", zap.String("domain", domain), zap.String("company_id", id))
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"domain":     domain,
		"company_id": id,
	})
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CompanyFilter{Status: model.Status(q.Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if v := q.Get("scored"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "scored must be true or false")
			return
		}
		filter.Scored = &b
	}
	for key, dst := range map[string]*int{"min_score": &filter.MinScore, "limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	companies, err := s.reader.ListCompanies(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list companies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if companies == nil {
		companies = []model.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	c, err := s.reader.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) rawRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.reader.GetCompany(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	recs, err := s.reader.ListRawRecords(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if recs == nil {
		recs = []model.RawEnrichmentRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.reader.GetCompany(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	events, err := s.reader.ListEvents(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []model.EventLogEntry{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
