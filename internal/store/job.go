package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hireboard/apiserver/types"
)

// JobRepository handles persistence for jobs.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CountDrift describes a job whose stored application count disagreed
// with the applications table.
type CountDrift struct {
	JobID  string `json:"jobId"`
	Stored int    `json:"stored"`
	Actual int    `json:"actual"`
}

const jobSelect = `
	SELECT j.id, j.title, j.company, j.salary, j.location, j.description, j.posted_by,
	       j.application_count, j.skills_required, j.job_type, j.created_at, j.updated_at,
	       u.name, u.email
	FROM jobs j
	JOIN users u ON u.id = j.posted_by`

func scanJob(row rowScanner) (types.Job, error) {
	var job types.Job
	var skillsJSON []byte
	poster := &types.UserSummary{}
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Company,
		&job.Salary,
		&job.Location,
		&job.Description,
		&job.PostedBy,
		&job.ApplicationCount,
		&skillsJSON,
		&job.JobType,
		&job.CreatedAt,
		&job.UpdatedAt,
		&poster.Name,
		&poster.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}

	_ = json.Unmarshal(skillsJSON, &job.SkillsRequired)
	if job.SkillsRequired == nil {
		job.SkillsRequired = []string{}
	}
	poster.ID = job.PostedBy
	job.Poster = poster
	return job, nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]types.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]types.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// List returns every job, newest first, with the poster joined in.
func (r *JobRepository) List(ctx context.Context) ([]types.Job, error) {
	return r.queryJobs(ctx, jobSelect+` ORDER BY j.created_at DESC, j.id`)
}

// ListByPoster returns the jobs owned by the given company, newest first.
func (r *JobRepository) ListByPoster(ctx context.Context, posterID string) ([]types.Job, error) {
	return r.queryJobs(ctx, jobSelect+` WHERE j.posted_by = $1 ORDER BY j.created_at DESC, j.id`, posterID)
}

func (r *JobRepository) Get(ctx context.Context, id string) (types.Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, jobSelect+` WHERE j.id = $1`, id))
}

func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.ApplicationCount = 0
	if job.SkillsRequired == nil {
		job.SkillsRequired = []string{}
	}

	skillsJSON, err := json.Marshal(job.SkillsRequired)
	if err != nil {
		return types.Job{}, err
	}

	const query = `
		INSERT INTO jobs (id, title, company, salary, location, description, posted_by,
		                  application_count, skills_required, job_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Title,
		job.Company,
		job.Salary,
		job.Location,
		job.Description,
		job.PostedBy,
		job.ApplicationCount,
		string(skillsJSON),
		job.JobType,
		job.CreatedAt,
		job.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Job{}, ErrConflict
		}
		return types.Job{}, err
	}

	return r.Get(ctx, job.ID)
}

// Update rewrites the editable fields. ApplicationCount and PostedBy are
// never touched here.
func (r *JobRepository) Update(ctx context.Context, job types.Job) (types.Job, error) {
	if job.SkillsRequired == nil {
		job.SkillsRequired = []string{}
	}
	skillsJSON, err := json.Marshal(job.SkillsRequired)
	if err != nil {
		return types.Job{}, err
	}

	const query = `
		UPDATE jobs
		SET title = $1,
			company = $2,
			salary = $3,
			location = $4,
			description = $5,
			skills_required = $6,
			job_type = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		job.Title,
		job.Company,
		job.Salary,
		job.Location,
		job.Description,
		string(skillsJSON),
		job.JobType,
		time.Now().UTC(),
		job.ID,
	)
	if err != nil {
		return types.Job{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Job{}, err
	}
	if affected == 0 {
		return types.Job{}, ErrNotFound
	}

	return r.Get(ctx, job.ID)
}

// Delete removes the job and all of its applications in one transaction
// and returns the résumé keys that were referenced by those applications.
func (r *JobRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT resume FROM applications WHERE job_id = $1`, id)
	if err != nil {
		return nil, err
	}
	resumes := make([]string, 0)
	for rows.Next() {
		var resume string
		if err := rows.Scan(&resume); err != nil {
			_ = rows.Close()
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE job_id = $1`, id); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resumes, nil
}

// ReconcileCounts recomputes application_count for every job from the
// applications table and returns the jobs that had drifted.
func (r *JobRepository) ReconcileCounts(ctx context.Context) ([]CountDrift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const driftQuery = `
		SELECT j.id, j.application_count, COUNT(a.id)
		FROM jobs j
		LEFT JOIN applications a ON a.job_id = j.id
		GROUP BY j.id, j.application_count
		HAVING j.application_count <> COUNT(a.id)
		ORDER BY j.id`
	rows, err := tx.QueryContext(ctx, driftQuery)
	if err != nil {
		return nil, err
	}
	drifts := make([]CountDrift, 0)
	for rows.Next() {
		var drift CountDrift
		if err := rows.Scan(&drift.JobID, &drift.Stored, &drift.Actual); err != nil {
			_ = rows.Close()
			return nil, err
		}
		drifts = append(drifts, drift)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	const fixQuery = `UPDATE jobs SET application_count = $1, updated_at = $2 WHERE id = $3`
	now := time.Now().UTC()
	for _, drift := range drifts {
		if _, err := tx.ExecContext(ctx, fixQuery, drift.Actual, now, drift.JobID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return drifts, nil
}
