package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/types"
)

const (
	maxMultipartMemory   = 8 << 20
	multipartOverhead    = 1 << 20
	formFieldResume      = "resume"
	formFieldJobID       = "jobId"
	formFieldCoverLetter = "coverLetter"
)

// ApplicationHandler provides HTTP handlers for job applications.
type ApplicationHandler struct {
	apps           *services.ApplicationService
	resp           *Responder
	maxResumeBytes int64
}

// NewApplicationHandler constructs a handler with the provided service.
func NewApplicationHandler(apps *services.ApplicationService, resp *Responder, maxResumeBytes int64) *ApplicationHandler {
	if maxResumeBytes <= 0 {
		maxResumeBytes = services.DefaultMaxResumeBytes
	}
	return &ApplicationHandler{apps: apps, resp: resp, maxResumeBytes: maxResumeBytes}
}

// ApplicationRouter registers application routes on the given router. Every
// route requires authentication.
func ApplicationRouter(
	r chi.Router,
	apps *services.ApplicationService,
	resp *Responder,
	authMiddleware func(http.Handler) http.Handler,
	maxResumeBytes int64,
) {
	handler := NewApplicationHandler(apps, resp, maxResumeBytes)
	seeker := RequireRole(resp, types.RoleJobSeeker)
	company := RequireRole(resp, types.RoleCompany)
	reviewer := RequireRole(resp, types.RoleCompany, types.RoleAdmin)

	r.Use(authMiddleware)
	r.With(seeker).Post("/", handler.Submit)
	r.Get("/resume/{filename}", handler.DownloadResume)
	r.With(company).Get("/company", handler.ListCompanyApplications)
	r.With(reviewer).Get("/job/{jobID}", handler.ListJobApplications)
	r.With(seeker).Get("/my", handler.ListMyApplications)
	r.With(reviewer).Put("/{applicationID}/status", handler.UpdateStatus)
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxResumeBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.resp.fail(w, http.StatusBadRequest, "resume file is too large", err)
			return
		}
		h.resp.fail(w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	resume, closeResume, err := openResume(r.MultipartForm)
	if err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	defer closeResume()

	app, err := h.apps.Submit(r.Context(), identity, services.SubmitInput{
		JobID:       r.FormValue(formFieldJobID),
		CoverLetter: r.FormValue(formFieldCoverLetter),
		Resume:      resume,
	})
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusCreated, "application submitted successfully", Envelope{"application": app})
}

func (h *ApplicationHandler) DownloadResume(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	file, err := h.apps.FetchResume(r.Context(), identity, chi.URLParam(r, "filename"))
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	defer file.Content.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(file.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file.Content); err != nil {
		h.resp.Logger.WarnContext(r.Context(), "resume stream interrupted", "resume", file.Filename, "error", err)
	}
}

func (h *ApplicationHandler) ListCompanyApplications(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	apps, err := h.apps.ListForCompany(r.Context(), identity)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"count": len(apps), "applications": apps})
}

func (h *ApplicationHandler) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	apps, err := h.apps.ListForJob(r.Context(), identity, chi.URLParam(r, "jobID"))
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"count": len(apps), "applications": apps})
}

func (h *ApplicationHandler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	apps, err := h.apps.ListForApplicant(r.Context(), identity)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "", Envelope{"count": len(apps), "applications": apps})
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	var req StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	app, err := h.apps.SetStatus(r.Context(), identity, chi.URLParam(r, "applicationID"), req.Status)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}
	h.resp.success(w, http.StatusOK, "application status updated", Envelope{"application": app})
}

// StatusUpdateRequest is the body of PUT /applications/{id}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// openResume returns the uploaded résumé, or nil when none was attached so
// the service can report it alongside its other preconditions.
func openResume(form *multipart.Form) (*services.ResumeUpload, func(), error) {
	noop := func() {}
	if form == nil {
		return nil, noop, nil
	}

	files := form.File[formFieldResume]
	if len(files) == 0 {
		return nil, noop, nil
	}
	if len(files) > 1 {
		return nil, noop, errors.New("only one resume file is allowed")
	}

	header := files[0]
	file, err := header.Open()
	if err != nil {
		return nil, noop, errors.New("failed to read resume file")
	}
	return &services.ResumeUpload{
		Filename: strings.TrimSpace(header.Filename),
		Size:     header.Size,
		Content:  file,
	}, func() { _ = file.Close() }, nil
}
