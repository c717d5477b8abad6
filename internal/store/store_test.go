package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hireboard/apiserver/config"
	"github.com/hireboard/apiserver/internal/db"
	"github.com/hireboard/apiserver/types"
)

// newTestDB creates a migrated SQLite database in a temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.Config{Database: config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}}
	conn, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.MigrateUp(conn, config.DriverSQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return conn
}

func createUser(t *testing.T, repo *UserRepository, email string, role types.Role) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		ID:           uuid.NewString(),
		Name:         "User " + email,
		Email:        email,
		Role:         role,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func createJob(t *testing.T, repo *JobRepository, postedBy string) types.Job {
	t.Helper()
	job, err := repo.Create(context.Background(), types.Job{
		ID:             uuid.NewString(),
		Title:          "Backend Engineer",
		Company:        "Acme",
		Salary:         "100k",
		Location:       "Remote",
		Description:    "Build APIs",
		PostedBy:       postedBy,
		SkillsRequired: []string{"go", "sql"},
		JobType:        types.JobTypeFullTime,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func newApplication(jobID, userID string) types.Application {
	return types.Application{
		ID:     uuid.NewString(),
		JobID:  jobID,
		UserID: userID,
		Resume: uuid.NewString() + ".pdf",
	}
}

func TestUserEmailIsUniqueAfterNormalization(t *testing.T) {
	users := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	created := createUser(t, users, "  ALICE@X.com ", types.RoleJobSeeker)
	if created.Email != "alice@x.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}

	_, err := users.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Name:         "Other",
		Email:        "alice@x.com",
		Role:         types.RoleCompany,
		PasswordHash: "hash",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	fetched, err := users.GetByEmail(ctx, "Alice@X.COM")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if fetched.ID != created.ID || fetched.Role != types.RoleJobSeeker {
		t.Fatalf("unexpected user: %+v", fetched)
	}

	if _, err := users.GetByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRole(t *testing.T) {
	users := NewUserRepository(newTestDB(t))
	createUser(t, users, "boss@x.com", types.RoleCompany)

	updated, err := users.UpdateRole(context.Background(), "BOSS@x.com", types.RoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != types.RoleAdmin {
		t.Fatalf("expected admin, got %q", updated.Role)
	}

	if _, err := users.UpdateRole(context.Background(), "nobody@x.com", types.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobCreateAndList(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	ctx := context.Background()

	companyA := createUser(t, users, "a@corp.com", types.RoleCompany)
	companyB := createUser(t, users, "b@corp.com", types.RoleCompany)

	first := createJob(t, jobs, companyA.ID)
	createJob(t, jobs, companyB.ID)
	third := createJob(t, jobs, companyA.ID)

	if first.Poster == nil || first.Poster.Email != "a@corp.com" {
		t.Fatalf("expected poster joined in, got %+v", first.Poster)
	}
	if len(first.SkillsRequired) != 2 || first.SkillsRequired[0] != "go" {
		t.Fatalf("unexpected skills: %v", first.SkillsRequired)
	}

	all, err := jobs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	mine, err := jobs.ListByPoster(ctx, companyA.ID)
	if err != nil {
		t.Fatalf("list by poster: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(mine))
	}
	if mine[0].ID != third.ID {
		t.Fatalf("expected newest job first")
	}
}

func TestJobUpdate(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	company := createUser(t, users, "c@corp.com", types.RoleCompany)
	job := createJob(t, jobs, company.ID)

	job.Title = "Staff Engineer"
	job.SkillsRequired = []string{"go"}
	job.ApplicationCount = 99
	updated, err := jobs.Update(context.Background(), job)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Staff Engineer" || len(updated.SkillsRequired) != 1 {
		t.Fatalf("unexpected job: %+v", updated)
	}
	if updated.ApplicationCount != 0 {
		t.Fatalf("update must not touch application count, got %d", updated.ApplicationCount)
	}

	job.ID = uuid.NewString()
	if _, err := jobs.Update(context.Background(), job); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplicationCreateIncrementsCount(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	apps := NewApplicationRepository(conn)
	ctx := context.Background()

	company := createUser(t, users, "hr@corp.com", types.RoleCompany)
	seeker := createUser(t, users, "bob@mail.com", types.RoleJobSeeker)
	job := createJob(t, jobs, company.ID)

	created, err := apps.Create(ctx, newApplication(job.ID, seeker.ID))
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if created.Status != types.StatusPending {
		t.Fatalf("expected pending, got %q", created.Status)
	}
	if created.Job == nil || created.Job.PostedBy != company.ID || created.Job.Title != job.Title {
		t.Fatalf("expected job joined in, got %+v", created.Job)
	}
	if created.Applicant == nil || created.Applicant.Email != "bob@mail.com" {
		t.Fatalf("expected applicant joined in, got %+v", created.Applicant)
	}

	_, err = apps.Create(ctx, newApplication(job.ID, seeker.ID))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate, got %v", err)
	}

	reloaded, err := jobs.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if reloaded.ApplicationCount != 1 {
		t.Fatalf("expected count 1 after rejected duplicate, got %d", reloaded.ApplicationCount)
	}

	exists, err := apps.Exists(ctx, job.ID, seeker.ID)
	if err != nil || !exists {
		t.Fatalf("expected application to exist, got %v %v", exists, err)
	}
}

func TestApplicationCreateMissingJob(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	apps := NewApplicationRepository(conn)
	seeker := createUser(t, users, "bob@mail.com", types.RoleJobSeeker)

	_, err := apps.Create(context.Background(), newApplication(uuid.NewString(), seeker.ID))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	apps := NewApplicationRepository(conn)
	ctx := context.Background()

	company := createUser(t, users, "hr@corp.com", types.RoleCompany)
	job := createJob(t, jobs, company.ID)

	const n = 12
	seekers := make([]types.User, n)
	for i := range seekers {
		seekers[i] = createUser(t, users, fmt.Sprintf("seeker%d@mail.com", i), types.RoleJobSeeker)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for _, seeker := range seekers {
		// Each seeker submits twice concurrently; exactly one must win.
		for range 2 {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, err := apps.Create(ctx, newApplication(job.ID, userID))
				errs <- err
			}(seeker.ID)
		}
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != n || conflicts != n {
		t.Fatalf("expected %d successes and %d conflicts, got %d and %d", n, n, ok, conflicts)
	}

	reloaded, err := jobs.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if reloaded.ApplicationCount != n {
		t.Fatalf("expected count %d, got %d", n, reloaded.ApplicationCount)
	}
}

func TestApplicationListsAndStatus(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	apps := NewApplicationRepository(conn)
	ctx := context.Background()

	companyA := createUser(t, users, "a@corp.com", types.RoleCompany)
	companyB := createUser(t, users, "b@corp.com", types.RoleCompany)
	seeker := createUser(t, users, "bob@mail.com", types.RoleJobSeeker)
	jobA := createJob(t, jobs, companyA.ID)
	jobB := createJob(t, jobs, companyB.ID)

	appA, err := apps.Create(ctx, newApplication(jobA.ID, seeker.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	appB, err := apps.Create(ctx, newApplication(jobB.ID, seeker.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	forA, err := apps.ListByCompany(ctx, companyA.ID)
	if err != nil {
		t.Fatalf("list by company: %v", err)
	}
	if len(forA) != 1 || forA[0].ID != appA.ID {
		t.Fatalf("unexpected company list: %+v", forA)
	}

	forJob, err := apps.ListByJob(ctx, jobB.ID)
	if err != nil {
		t.Fatalf("list by job: %v", err)
	}
	if len(forJob) != 1 || forJob[0].ID != appB.ID {
		t.Fatalf("unexpected job list: %+v", forJob)
	}

	mine, err := apps.ListByApplicant(ctx, seeker.ID)
	if err != nil {
		t.Fatalf("list by applicant: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != appB.ID {
		t.Fatalf("expected newest first, got %+v", mine)
	}
	if mine[0].Job.PosterName != companyB.Name {
		t.Fatalf("expected poster name joined in, got %q", mine[0].Job.PosterName)
	}

	updated, err := apps.UpdateStatus(ctx, appA.ID, types.StatusAccepted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != types.StatusAccepted {
		t.Fatalf("expected accepted, got %q", updated.Status)
	}

	byResume, err := apps.GetByResume(ctx, appA.Resume)
	if err != nil {
		t.Fatalf("get by resume: %v", err)
	}
	if byResume.ID != appA.ID {
		t.Fatalf("unexpected application for resume")
	}

	if _, err := apps.UpdateStatus(ctx, uuid.NewString(), types.StatusReviewed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobDeleteCascadesApplications(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	apps := NewApplicationRepository(conn)
	ctx := context.Background()

	company := createUser(t, users, "hr@corp.com", types.RoleCompany)
	seeker := createUser(t, users, "bob@mail.com", types.RoleJobSeeker)
	job := createJob(t, jobs, company.ID)
	app, err := apps.Create(ctx, newApplication(job.ID, seeker.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resumes, err := jobs.Delete(ctx, job.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(resumes) != 1 || resumes[0] != app.Resume {
		t.Fatalf("unexpected resumes: %v", resumes)
	}
	if _, err := apps.Get(ctx, app.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected application removed, got %v", err)
	}
	if _, err := jobs.Get(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected job removed, got %v", err)
	}
	if _, err := jobs.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReconcileCounts(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	jobs := NewJobRepository(conn)
	apps := NewApplicationRepository(conn)
	ctx := context.Background()

	company := createUser(t, users, "hr@corp.com", types.RoleCompany)
	seeker := createUser(t, users, "bob@mail.com", types.RoleJobSeeker)
	drifted := createJob(t, jobs, company.ID)
	clean := createJob(t, jobs, company.ID)
	if _, err := apps.Create(ctx, newApplication(drifted.ID, seeker.ID)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `UPDATE jobs SET application_count = 7 WHERE id = $1`, drifted.ID); err != nil {
		t.Fatalf("corrupt count: %v", err)
	}

	drifts, err := jobs.ReconcileCounts(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(drifts) != 1 || drifts[0].JobID != drifted.ID || drifts[0].Stored != 7 || drifts[0].Actual != 1 {
		t.Fatalf("unexpected drifts: %+v", drifts)
	}

	reloaded, err := jobs.Get(ctx, drifted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.ApplicationCount != 1 {
		t.Fatalf("expected repaired count 1, got %d", reloaded.ApplicationCount)
	}
	untouched, err := jobs.Get(ctx, clean.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if untouched.ApplicationCount != 0 {
		t.Fatalf("expected clean job to stay 0, got %d", untouched.ApplicationCount)
	}
}
