// Package v1 provides the catalog sync REST API: triggering runs, reading the job ledger,
// progress and cached resources.
package v1

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/api/common"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/status"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

// maxRequestBodyBytes bounds the trigger request body
const maxRequestBodyBytes = 64 << 10

// ProgressReader is the read side of the progress tracker
type ProgressReader interface {
	Snapshot(ctx context.Context) (status.Snapshot, error)
}

// Services are the dependencies of the v1 routes
type Services struct {
	Manager   pkgsync.Manager
	Jobs      state.Service
	Progress  ProgressReader
	Resources cache.Reader
}

// TriggerFailedResponse is returned with 502 when a run ended failed
type TriggerFailedResponse struct {
	Error   string          `json:"error"`
	Summary pkgsync.Summary `json:"summary"`
}

// JobListResponse wraps a page of jobs
type JobListResponse struct {
	Jobs []state.SyncJob `json:"jobs"`
}

// Routes holds the handlers of the v1 API
type Routes struct {
	services Services
}

// NewRoutes creates a new Routes instance with the provided services
func NewRoutes(svc Services) *Routes {
	return &Routes{services: svc}
}

// Router creates a new router for the v1 API
func Router(svc Services) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.Route("/sync", func(r chi.Router) {
		r.Post("/runs", routes.triggerRun)
		r.Get("/jobs", routes.listJobs)
		r.Get("/jobs/{id}", routes.getJob)
		r.Get("/progress", routes.getProgress)
	})
	r.Get("/resources/{kind}/{key}", routes.getResource)

	return r
}

// triggerRun handles POST /v1/sync/runs
func (rr *Routes) triggerRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		common.WriteErrorResponse(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, err := DecodeTriggerRequest(body)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := rr.services.Manager.Trigger(r.Context(), req)
	if err == nil {
		common.WriteJSONResponse(w, summary, http.StatusOK)
		return
	}

	switch {
	case errors.Is(err, pkgsync.ErrInvalidRequest):
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pkgsync.ErrModeUnavailable):
		common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
	case summary.JobID != uuid.Nil:
		common.WriteJSONResponse(w, TriggerFailedResponse{Error: err.Error(), Summary: summary}, http.StatusBadGateway)
	default:
		slog.Error("Failed to start sync run", "mode", req.Mode, "error", err)
		common.WriteErrorResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

// listJobs handles GET /v1/sync/jobs?mode=&limit=
func (rr *Routes) listJobs(w http.ResponseWriter, r *http.Request) {
	filter := state.ListFilter{}

	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, err := state.ParseMode(raw)
		if err != nil {
			common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Mode = mode
	}

	limit, err := common.QueryInt(r, "limit", state.DefaultListLimit)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.Limit = limit

	jobs, err := rr.services.Jobs.List(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list sync jobs", "error", err)
		common.WriteErrorResponse(w, "failed to list sync jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []state.SyncJob{}
	}
	common.WriteJSONResponse(w, JobListResponse{Jobs: jobs}, http.StatusOK)
}

// getJob handles GET /v1/sync/jobs/{id}
func (rr *Routes) getJob(w http.ResponseWriter, r *http.Request) {
	raw, err := common.PathParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.WriteErrorResponse(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	job, err := rr.services.Jobs.Get(r.Context(), id)
	if errors.Is(err, state.ErrJobNotFound) {
		common.WriteErrorResponse(w, "sync job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get sync job", "job_id", id, "error", err)
		common.WriteErrorResponse(w, "failed to get sync job", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, job, http.StatusOK)
}

// getProgress handles GET /v1/sync/progress
func (rr *Routes) getProgress(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rr.services.Progress.Snapshot(r.Context())
	if err != nil {
		slog.Error("Failed to compute sync progress", "error", err)
		common.WriteErrorResponse(w, "failed to compute sync progress", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, snapshot, http.StatusOK)
}

// getResource handles GET /v1/resources/{kind}/{key}
func (rr *Routes) getResource(w http.ResponseWriter, r *http.Request) {
	rawKind, err := common.PathParam(r, "kind")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := catalog.Parse(rawKind)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	key, err := common.PathParam(r, "key")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := rr.services.Resources.Get(r.Context(), kind, key)
	if errors.Is(err, cache.ErrResourceNotFound) {
		common.WriteErrorResponse(w, "resource not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to read resource", "kind", kind, "key", key, "error", err)
		common.WriteErrorResponse(w, "failed to read resource", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, res, http.StatusOK)
}
