package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
)

const (
	DefaultMaxResumeBytes = 5 << 20

	contentTypePDF     = "application/pdf"
	contentTypeDOC     = "application/msword"
	contentTypeDOCX    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	contentTypeGeneric = "application/octet-stream"
)

// ResumeUpload is an uploaded résumé file.
type ResumeUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// SubmitInput is the payload for submitting an application.
type SubmitInput struct {
	JobID       string
	CoverLetter string
	Resume      *ResumeUpload
}

// ResumeFile is a résumé opened for download. Callers must close Content.
type ResumeFile struct {
	Filename    string
	ContentType string
	Content     io.ReadCloser
}

// ApplicationService enforces the application workflow: submission
// preconditions, ownership checks and status transitions.
type ApplicationService struct {
	apps           ApplicationRepository
	jobs           JobRepository
	storage        ResumeStorage
	events         EventPublisher
	workflow       StatusWorkflow
	maxResumeBytes int64
	logger         *slog.Logger
}

// ApplicationServiceConfig bundles the collaborators of ApplicationService.
type ApplicationServiceConfig struct {
	Applications   ApplicationRepository
	Jobs           JobRepository
	Storage        ResumeStorage
	Events         EventPublisher
	Workflow       StatusWorkflow
	MaxResumeBytes int64
	Logger         *slog.Logger
}

func NewApplicationService(cfg ApplicationServiceConfig) *ApplicationService {
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = DefaultMaxResumeBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ApplicationService{
		apps:           cfg.Applications,
		jobs:           cfg.Jobs,
		storage:        cfg.Storage,
		events:         cfg.Events,
		workflow:       cfg.Workflow,
		maxResumeBytes: cfg.MaxResumeBytes,
		logger:         cfg.Logger,
	}
}

// Submit stores the résumé and creates a pending application. The
// application insert and the job's count increment commit together; if
// they fail the stored résumé is removed again.
func (s *ApplicationService) Submit(ctx context.Context, identity Identity, in SubmitInput) (types.Application, error) {
	if err := RequireRole(identity, types.RoleJobSeeker); err != nil {
		return types.Application{}, err
	}
	if in.Resume == nil || in.Resume.Content == nil {
		return types.Application{}, validationError("resume file is required")
	}
	jobID, err := ValidateID("job id", in.JobID)
	if err != nil {
		return types.Application{}, err
	}

	ext := strings.ToLower(filepath.Ext(in.Resume.Filename))
	if !allowedResumeExt(ext) {
		return types.Application{}, validationError("resume must be a .pdf, .doc or .docx file")
	}
	if in.Resume.Size > s.maxResumeBytes {
		return types.Application{}, validationError("resume file is too large")
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, notFoundError("job not found")
		}
		return types.Application{}, internalError("failed to fetch job", err)
	}

	exists, err := s.apps.Exists(ctx, job.ID, identity.UserID)
	if err != nil {
		return types.Application{}, internalError("failed to check existing application", err)
	}
	if exists {
		return types.Application{}, conflictError("you have already applied for this job")
	}

	key := uuid.NewString() + ext
	if err := s.storage.Put(ctx, key, in.Resume.Content, in.Resume.Size, ResumeContentType(key)); err != nil {
		return types.Application{}, internalError("failed to store resume", err)
	}

	created, err := s.apps.Create(ctx, types.Application{
		ID:          uuid.NewString(),
		JobID:       job.ID,
		UserID:      identity.UserID,
		Resume:      key,
		CoverLetter: strings.TrimSpace(in.CoverLetter),
		Status:      types.StatusPending,
	})
	if err != nil {
		s.discardResume(ctx, key)
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.Application{}, conflictError("you have already applied for this job")
		case errors.Is(err, store.ErrNotFound):
			return types.Application{}, notFoundError("job not found")
		default:
			return types.Application{}, internalError("failed to submit application", err)
		}
	}

	s.logger.InfoContext(ctx, "application submitted", "application_id", created.ID, "job_id", job.ID, "user_id", identity.UserID)
	s.publish(ctx, types.ApplicationEvent{
		Type:          types.EventApplicationSubmitted,
		ApplicationID: created.ID,
		JobID:         job.ID,
		ApplicantID:   identity.UserID,
		CompanyID:     job.PostedBy,
		Status:        created.Status,
	})
	return created, nil
}

// SetStatus changes the status of an application to a job the caller owns.
func (s *ApplicationService) SetStatus(ctx context.Context, identity Identity, rawID, rawStatus string) (types.Application, error) {
	id, err := ValidateID("application id", rawID)
	if err != nil {
		return types.Application{}, err
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return types.Application{}, err
	}
	if err := RequireRole(identity, types.RoleCompany, types.RoleAdmin); err != nil {
		return types.Application{}, err
	}

	app, err := s.apps.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, notFoundError("application not found")
		}
		return types.Application{}, internalError("failed to fetch application", err)
	}
	if app.Job == nil {
		return types.Application{}, internalError("application has no job", nil)
	}
	if err := AuthorizeJobOwner(identity, app.Job.PostedBy); err != nil {
		return types.Application{}, forbiddenError("not authorized to update this application")
	}
	if err := s.workflow.Check(app.Status, status); err != nil {
		return types.Application{}, err
	}

	updated, err := s.apps.UpdateStatus(ctx, app.ID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, notFoundError("application not found")
		}
		return types.Application{}, internalError("failed to update application", err)
	}

	s.publish(ctx, types.ApplicationEvent{
		Type:           types.EventApplicationStatusChanged,
		ApplicationID:  updated.ID,
		JobID:          updated.JobID,
		ApplicantID:    updated.UserID,
		CompanyID:      app.Job.PostedBy,
		Status:         updated.Status,
		PreviousStatus: app.Status,
	})
	return updated, nil
}

// ListForCompany returns applications across all of the caller's jobs.
func (s *ApplicationService) ListForCompany(ctx context.Context, identity Identity) ([]types.Application, error) {
	if err := RequireRole(identity, types.RoleCompany); err != nil {
		return nil, err
	}
	apps, err := s.apps.ListByCompany(ctx, identity.UserID)
	if err != nil {
		return nil, internalError("failed to list applications", err)
	}
	return apps, nil
}

// ListForJob returns applications to one job the caller owns.
func (s *ApplicationService) ListForJob(ctx context.Context, identity Identity, rawJobID string) ([]types.Application, error) {
	jobID, err := ValidateID("job id", rawJobID)
	if err != nil {
		return nil, err
	}
	if err := RequireRole(identity, types.RoleCompany, types.RoleAdmin); err != nil {
		return nil, err
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("job not found")
		}
		return nil, internalError("failed to fetch job", err)
	}
	if err := AuthorizeJobOwner(identity, job.PostedBy); err != nil {
		return nil, forbiddenError("not authorized to view applications for this job")
	}

	apps, err := s.apps.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, internalError("failed to list applications", err)
	}
	return apps, nil
}

// ListForApplicant returns the caller's own applications.
func (s *ApplicationService) ListForApplicant(ctx context.Context, identity Identity) ([]types.Application, error) {
	if err := RequireRole(identity, types.RoleJobSeeker); err != nil {
		return nil, err
	}
	apps, err := s.apps.ListByApplicant(ctx, identity.UserID)
	if err != nil {
		return nil, internalError("failed to list applications", err)
	}
	return apps, nil
}

// FetchResume opens a résumé for the applicant, the owning company or an admin.
func (s *ApplicationService) FetchResume(ctx context.Context, identity Identity, filename string) (ResumeFile, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return ResumeFile{}, notFoundError("resume not found")
	}

	app, err := s.apps.GetByResume(ctx, filename)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResumeFile{}, notFoundError("resume not found")
		}
		return ResumeFile{}, internalError("failed to fetch application", err)
	}
	if err := AuthorizeResume(identity, app); err != nil {
		return ResumeFile{}, err
	}

	content, err := s.storage.Get(ctx, app.Resume)
	if err != nil {
		if isObjectNotFound(err) {
			return ResumeFile{}, notFoundError("resume file not found")
		}
		return ResumeFile{}, internalError("failed to open resume", err)
	}

	return ResumeFile{
		Filename:    app.Resume,
		ContentType: ResumeContentType(app.Resume),
		Content:     content,
	}, nil
}

// ResumeContentType maps a file extension to the served content type.
func ResumeContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return contentTypePDF
	case ".doc":
		return contentTypeDOC
	case ".docx":
		return contentTypeDOCX
	default:
		return contentTypeGeneric
	}
}

func allowedResumeExt(ext string) bool {
	switch ext {
	case ".pdf", ".doc", ".docx":
		return true
	default:
		return false
	}
}

func (s *ApplicationService) discardResume(ctx context.Context, key string) {
	// The request context may already be cancelled; cleanup must still run.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(cleanupCtx, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove orphaned resume", "resume", key, "error", err)
	}
}

func (s *ApplicationService) publish(ctx context.Context, event types.ApplicationEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode event", "type", event.Type, "error", err)
		return
	}
	attrs := map[string]string{
		"type":           event.Type,
		"application_id": event.ApplicationID,
		"content-type":   "application/json",
	}
	if _, err := s.events.Publish(ctx, event.Type, data, attrs); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "type", event.Type, "application_id", event.ApplicationID, "error", err)
	}
}
