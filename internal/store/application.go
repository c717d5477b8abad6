package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hireboard/apiserver/types"
)

// ApplicationRepository handles persistence for applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationSelect = `
	SELECT a.id, a.job_id, a.user_id, a.resume, a.cover_letter, a.status, a.created_at, a.updated_at,
	       j.title, j.company, j.location, j.posted_by, p.name,
	       u.name, u.email
	FROM applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN users p ON p.id = j.posted_by
	JOIN users u ON u.id = a.user_id`

const applicationOrder = ` ORDER BY a.created_at DESC, a.id`

func scanApplication(row rowScanner) (types.Application, error) {
	var app types.Application
	job := &types.JobSummary{}
	applicant := &types.UserSummary{}
	err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.UserID,
		&app.Resume,
		&app.CoverLetter,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
		&job.Title,
		&job.Company,
		&job.Location,
		&job.PostedBy,
		&job.PosterName,
		&applicant.Name,
		&applicant.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	job.ID = app.JobID
	applicant.ID = app.UserID
	app.Job = job
	app.Applicant = applicant
	return app, nil
}

func (r *ApplicationRepository) queryApplications(ctx context.Context, query string, args ...any) ([]types.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]types.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id string) (types.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
}

// GetByResume finds the application that owns a stored résumé key.
func (r *ApplicationRepository) GetByResume(ctx context.Context, resume string) (types.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.resume = $1`, resume))
}

// Exists reports whether the applicant already applied to the job.
func (r *ApplicationRepository) Exists(ctx context.Context, jobID, userID string) (bool, error) {
	const query = `SELECT COUNT(1) FROM applications WHERE job_id = $1 AND user_id = $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, jobID, userID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the application and increments the parent job's
// application_count in one transaction. A second application for the same
// (job, user) pair yields ErrConflict; a missing job yields ErrNotFound.
// Nothing is persisted on error.
func (r *ApplicationRepository) Create(ctx context.Context, app types.Application) (types.Application, error) {
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = types.StatusPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Application{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET application_count = application_count + 1 WHERE id = $1`,
		app.JobID,
	)
	if err != nil {
		return types.Application{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Application{}, err
	}
	if affected == 0 {
		return types.Application{}, ErrNotFound
	}

	const insert = `
		INSERT INTO applications (id, job_id, user_id, resume, cover_letter, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(
		ctx,
		insert,
		app.ID,
		app.JobID,
		app.UserID,
		app.Resume,
		app.CoverLetter,
		app.Status,
		app.CreatedAt,
		app.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Application{}, ErrConflict
		}
		return types.Application{}, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return types.Application{}, ErrConflict
		}
		return types.Application{}, err
	}

	return r.Get(ctx, app.ID)
}

// UpdateStatus persists a new status and returns the updated record.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status types.ApplicationStatus) (types.Application, error) {
	const query = `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return types.Application{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Application{}, err
	}
	if affected == 0 {
		return types.Application{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// ListByCompany returns applications to every job posted by companyID.
func (r *ApplicationRepository) ListByCompany(ctx context.Context, companyID string) ([]types.Application, error) {
	return r.queryApplications(ctx, applicationSelect+` WHERE j.posted_by = $1`+applicationOrder, companyID)
}

// ListByJob returns applications to a single job.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]types.Application, error) {
	return r.queryApplications(ctx, applicationSelect+` WHERE a.job_id = $1`+applicationOrder, jobID)
}

// ListByApplicant returns the applicant's own applications.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, userID string) ([]types.Application, error) {
	return r.queryApplications(ctx, applicationSelect+` WHERE a.user_id = $1`+applicationOrder, userID)
}
