package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
)

// JobInput is the payload for creating a job.
type JobInput struct {
	Title          string        `json:"title" validate:"required,max=200"`
	Company        string        `json:"company" validate:"required,max=200"`
	Salary         string        `json:"salary" validate:"max=100"`
	Location       string        `json:"location" validate:"required,max=200"`
	Description    string        `json:"description" validate:"required"`
	SkillsRequired []string      `json:"skillsRequired" validate:"dive,required"`
	JobType        types.JobType `json:"jobType" validate:"omitempty,oneof=full-time part-time contract internship remote"`
}

// JobUpdate carries the fields to change; nil fields are left untouched.
type JobUpdate struct {
	Title          *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Company        *string        `json:"company" validate:"omitempty,min=1,max=200"`
	Salary         *string        `json:"salary" validate:"omitempty,max=100"`
	Location       *string        `json:"location" validate:"omitempty,min=1,max=200"`
	Description    *string        `json:"description" validate:"omitempty,min=1"`
	SkillsRequired *[]string      `json:"skillsRequired" validate:"omitempty,dive,required"`
	JobType        *types.JobType `json:"jobType" validate:"omitempty,oneof=full-time part-time contract internship remote"`
}

// JobService encapsulates job use-cases.
type JobService struct {
	repo     JobRepository
	storage  ResumeStorage
	validate *validator.Validate
	logger   *slog.Logger
}

func NewJobService(repo JobRepository, storage ResumeStorage, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		repo:     repo,
		storage:  storage,
		validate: newValidator(),
		logger:   logger,
	}
}

// List returns every job with its poster. It is public and unpaginated.
func (s *JobService) List(ctx context.Context) ([]types.Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError("failed to list jobs", err)
	}
	return jobs, nil
}

// Create stores a new job owned by the calling company.
func (s *JobService) Create(ctx context.Context, identity Identity, in JobInput) (types.Job, error) {
	if err := RequireRole(identity, types.RoleCompany); err != nil {
		return types.Job{}, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Salary = strings.TrimSpace(in.Salary)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	in.SkillsRequired = cleanSkills(in.SkillsRequired)
	if err := validateStruct(s.validate, in); err != nil {
		return types.Job{}, err
	}
	if in.JobType == "" {
		in.JobType = types.JobTypeFullTime
	}

	job, err := s.repo.Create(ctx, types.Job{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Company:        in.Company,
		Salary:         in.Salary,
		Location:       in.Location,
		Description:    in.Description,
		PostedBy:       identity.UserID,
		SkillsRequired: in.SkillsRequired,
		JobType:        in.JobType,
	})
	if err != nil {
		return types.Job{}, internalError("failed to create job", err)
	}

	s.logger.InfoContext(ctx, "job created", "job_id", job.ID, "company_id", identity.UserID)
	return job, nil
}

// Get returns a single job. Companies may only view their own postings.
func (s *JobService) Get(ctx context.Context, identity Identity, rawID string) (types.Job, error) {
	job, err := s.load(ctx, rawID)
	if err != nil {
		return types.Job{}, err
	}
	if err := AuthorizeJobView(identity, job); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// ListMine returns the calling company's jobs.
func (s *JobService) ListMine(ctx context.Context, identity Identity) ([]types.Job, error) {
	if err := RequireRole(identity, types.RoleCompany); err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListByPoster(ctx, identity.UserID)
	if err != nil {
		return nil, internalError("failed to list jobs", err)
	}
	return jobs, nil
}

// Update applies a partial update to a job owned by the caller.
func (s *JobService) Update(ctx context.Context, identity Identity, rawID string, in JobUpdate) (types.Job, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return types.Job{}, err
	}

	job, err := s.load(ctx, rawID)
	if err != nil {
		return types.Job{}, err
	}
	if err := AuthorizeJobOwner(identity, job.PostedBy); err != nil {
		return types.Job{}, err
	}

	applyString(&job.Title, in.Title)
	applyString(&job.Company, in.Company)
	applyString(&job.Salary, in.Salary)
	applyString(&job.Location, in.Location)
	applyString(&job.Description, in.Description)
	if in.SkillsRequired != nil {
		job.SkillsRequired = cleanSkills(*in.SkillsRequired)
	}
	if in.JobType != nil {
		job.JobType = *in.JobType
	}
	if job.Title == "" || job.Company == "" || job.Location == "" || job.Description == "" {
		return types.Job{}, validationError("title, company, location and description cannot be empty")
	}

	updated, err := s.repo.Update(ctx, job)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Job{}, notFoundError("job not found")
		}
		return types.Job{}, internalError("failed to update job", err)
	}
	return updated, nil
}

// Delete removes a job and, transactionally, all of its applications.
// Résumé files are removed afterwards; failures there are only logged.
func (s *JobService) Delete(ctx context.Context, identity Identity, rawID string) error {
	job, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if err := AuthorizeJobOwner(identity, job.PostedBy); err != nil {
		return err
	}

	resumes, err := s.repo.Delete(ctx, job.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("job not found")
		}
		return internalError("failed to delete job", err)
	}

	for _, key := range resumes {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to remove resume of deleted job", "job_id", job.ID, "resume", key, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "job deleted", "job_id", job.ID, "applications", len(resumes))
	return nil
}

// Reconcile repairs application counts that drifted from the
// applications table.
func (s *JobService) Reconcile(ctx context.Context) ([]store.CountDrift, error) {
	drifts, err := s.repo.ReconcileCounts(ctx)
	if err != nil {
		return nil, internalError("failed to reconcile application counts", err)
	}
	for _, drift := range drifts {
		s.logger.WarnContext(ctx, "application count repaired", "job_id", drift.JobID, "stored", drift.Stored, "actual", drift.Actual)
	}
	return drifts, nil
}

func (s *JobService) load(ctx context.Context, rawID string) (types.Job, error) {
	id, err := ValidateID("job id", rawID)
	if err != nil {
		return types.Job{}, err
	}
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Job{}, notFoundError("job not found")
		}
		return types.Job{}, internalError("failed to fetch job", err)
	}
	return job, nil
}

func applyString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func cleanSkills(skills []string) []string {
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			cleaned = append(cleaned, skill)
		}
	}
	return cleaned
}
