// Package api exposes the workspace over HTTP: dataset CRUD, pipeline step
// mutations, source-structure validation, preview materialization, and the
// audit log.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"synthlab/internal/domain"
	mw "synthlab/internal/middleware"
	recipesvc "synthlab/internal/service/recipe"
)

// Handler serves the workspace HTTP API.
type Handler struct {
	svc    *recipesvc.Service
	logger *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *recipesvc.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("component", "api")}
}

// RouterConfig holds the middleware knobs for NewRouter.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewRouter builds the chi router with the standard middleware stack and all
// API routes mounted under /v1.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Principal"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(mw.RateLimiter(mw.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/datasets", h.listDatasets)
		r.Post("/datasets", h.createDataset)
		r.Route("/datasets/{dataset}", func(r chi.Router) {
			r.Get("/", h.getDataset)
			r.Delete("/", h.deleteDataset)

			r.Get("/steps", h.listSteps)
			r.Post("/steps", h.addStep)
			r.Put("/steps/order", h.reorderSteps)
			r.Delete("/steps/{step}", h.deleteStep)

			r.Get("/structure", h.getStructure)
			r.Post("/structure/validate", h.validateStructure)

			r.Post("/preview", h.preview)
		})
		r.Get("/audit", h.listAudit)
	})

	return r
}

// principal identifies the caller for audit purposes. Authentication is
// delegated to the deployment's gateway; the header is informational.
func principal(r *http.Request) string {
	if p := r.Header.Get("X-Principal"); p != "" {
		return p
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// decodeJSONOptional is decodeJSON for endpoints where an empty body is a
// valid request.
func decodeJSONOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.ErrValidation("invalid request body: %v", err)
}

func pageFromQuery(r *http.Request) domain.PageRequest {
	return domain.PageRequest{
		MaxResults: atoiDefault(r.URL.Query().Get("max_results"), 0),
		PageToken:  r.URL.Query().Get("page_token"),
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// === Datasets ===

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	datasets, total, err := h.svc.ListDatasets(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}

	out := datasetListJSON{Datasets: make([]datasetJSON, 0, len(datasets))}
	for i := range datasets {
		out.Datasets = append(out.Datasets, datasetToAPI(&datasets[i]))
	}
	out.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), total)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createDataset(w http.ResponseWriter, r *http.Request) {
	var in createDatasetJSON
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	d, err := h.svc.CreateDataset(r.Context(), principal(r), domain.CreateDatasetRequest{
		Name:        in.Name,
		Description: in.Description,
		SourceTable: in.SourceTable,
		RefreshCron: in.RefreshCron,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, datasetToAPI(d))
}

func (h *Handler) getDataset(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDataset(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(d))
}

func (h *Handler) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDataset(r.Context(), principal(r), chi.URLParam(r, "dataset")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Audit ===

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{Page: pageFromQuery(r)}
	if v := r.URL.Query().Get("dataset_id"); v != "" {
		filter.DatasetID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Action = &v
	}

	entries, total, err := h.svc.ListAudit(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := auditListJSON{Entries: make([]auditEntryJSON, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, auditEntryJSON{
			ID:        e.ID,
			Principal: e.Principal,
			Action:    e.Action,
			DatasetID: e.DatasetID,
			Detail:    e.Detail,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		})
	}
	out.NextPageToken = domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total)
	writeJSON(w, http.StatusOK, out)
}
