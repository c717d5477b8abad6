package services

import (
	"context"
	"errors"
	"io"

	"github.com/hireboard/apiserver/internal/storage"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
)

// JobRepository defines persistence operations for jobs.
type JobRepository interface {
	List(ctx context.Context) ([]types.Job, error)
	ListByPoster(ctx context.Context, posterID string) ([]types.Job, error)
	Get(ctx context.Context, id string) (types.Job, error)
	Create(ctx context.Context, job types.Job) (types.Job, error)
	Update(ctx context.Context, job types.Job) (types.Job, error)
	Delete(ctx context.Context, id string) ([]string, error)
	ReconcileCounts(ctx context.Context) ([]store.CountDrift, error)
}

// ApplicationRepository defines persistence operations for applications.
// Create must insert the application and increment the job's
// application count atomically.
type ApplicationRepository interface {
	Get(ctx context.Context, id string) (types.Application, error)
	GetByResume(ctx context.Context, resume string) (types.Application, error)
	Exists(ctx context.Context, jobID, userID string) (bool, error)
	Create(ctx context.Context, app types.Application) (types.Application, error)
	UpdateStatus(ctx context.Context, id string, status types.ApplicationStatus) (types.Application, error)
	ListByCompany(ctx context.Context, companyID string) ([]types.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]types.Application, error)
	ListByApplicant(ctx context.Context, userID string) ([]types.Application, error)
}

// ResumeStorage stores uploaded résumé files by key.
type ResumeStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes domain events to a named channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

func isObjectNotFound(err error) bool {
	return errors.Is(err, storage.ErrObjectNotFound)
}
