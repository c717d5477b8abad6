package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/types"
)

// JobHandler provides HTTP handlers for job postings.
type JobHandler struct {
	jobs *services.JobService
	resp *Responder
}

// NewJobHandler constructs a handler with the provided service.
func NewJobHandler(jobs *services.JobService, resp *Responder) *JobHandler {
	return &JobHandler{jobs: jobs, resp: resp}
}

// JobRouter registers job routes on the given router.
func JobRouter(
	r chi.Router,
	jobs *services.JobService,
	resp *Responder,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewJobHandler(jobs, resp)
	company := RequireRole(resp, types.RoleCompany)
	owner := RequireRole(resp, types.RoleCompany, types.RoleAdmin)

	r.Get("/", handler.ListJobs)
	r.With(authMiddleware, company).Post("/", handler.CreateJob)
	r.With(authMiddleware, company).Get("/my", handler.ListMyJobs)
	r.Route("/{jobID}", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.GetJob)
		r.With(owner).Put("/", handler.UpdateJob)
		r.With(owner).Delete("/", handler.DeleteJob)
	})
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"count": len(jobs), "jobs": jobs})
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	var req services.JobInput
	if err := decodeJSON(r, &req); err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	job, err := h.jobs.Create(r.Context(), identity, req)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusCreated, "job created successfully", Envelope{"job": job})
}

func (h *JobHandler) ListMyJobs(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	jobs, err := h.jobs.ListMine(r.Context(), identity)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"count": len(jobs), "jobs": jobs})
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	job, err := h.jobs.Get(r.Context(), identity, chi.URLParam(r, "jobID"))
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"job": job})
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	var req services.JobUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	job, err := h.jobs.Update(r.Context(), identity, chi.URLParam(r, "jobID"), req)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "job updated successfully", Envelope{"job": job})
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	if err := h.jobs.Delete(r.Context(), identity, chi.URLParam(r, "jobID")); err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "job deleted successfully", nil)
}
