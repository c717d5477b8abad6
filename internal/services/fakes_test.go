package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hireboard/apiserver/internal/storage"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryDB implements the user, job and application repositories over
// maps guarded by one mutex, mirroring the SQL store's constraints.
type memoryDB struct {
	mu        sync.Mutex
	users     map[string]types.User
	jobs      map[string]types.Job
	apps      map[string]types.Application
	createErr error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		users: map[string]types.User{},
		jobs:  map[string]types.Job{},
		apps:  map[string]types.Application{},
	}
}

type memoryUsers struct{ db *memoryDB }
type memoryJobs struct{ db *memoryDB }
type memoryApps struct{ db *memoryDB }

func (m *memoryDB) Users() memoryUsers { return memoryUsers{m} }
func (m *memoryDB) Jobs() memoryJobs   { return memoryJobs{m} }
func (m *memoryDB) Apps() memoryApps   { return memoryApps{m} }

func (r memoryUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = types.NormalizeEmail(email)
	for _, user := range r.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memoryUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	user.Email = types.NormalizeEmail(user.Email)
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.db.users[user.ID] = user
	return user, nil
}

func (r memoryUsers) UpdateRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = types.NormalizeEmail(email)
	for id, user := range r.db.users {
		if user.Email == email {
			user.Role = role
			r.db.users[id] = user
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memoryJobs) List(ctx context.Context) ([]types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	jobs := make([]types.Job, 0, len(r.db.jobs))
	for _, job := range r.db.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

func (r memoryJobs) ListByPoster(ctx context.Context, posterID string) ([]types.Job, error) {
	all, _ := r.List(ctx)
	jobs := make([]types.Job, 0, len(all))
	for _, job := range all {
		if job.PostedBy == posterID {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (r memoryJobs) Get(ctx context.Context, id string) (types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	job, ok := r.db.jobs[id]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	return job, nil
}

func (r memoryJobs) Create(ctx context.Context, job types.Job) (types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	job.ApplicationCount = 0
	r.db.jobs[job.ID] = job
	return job, nil
}

func (r memoryJobs) Update(ctx context.Context, job types.Job) (types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.jobs[job.ID]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	job.ApplicationCount = existing.ApplicationCount
	job.PostedBy = existing.PostedBy
	job.UpdatedAt = time.Now().UTC()
	r.db.jobs[job.ID] = job
	return job, nil
}

func (r memoryJobs) Delete(ctx context.Context, id string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.jobs[id]; !ok {
		return nil, store.ErrNotFound
	}
	var resumes []string
	for appID, app := range r.db.apps {
		if app.JobID == id {
			resumes = append(resumes, app.Resume)
			delete(r.db.apps, appID)
		}
	}
	delete(r.db.jobs, id)
	sort.Strings(resumes)
	return resumes, nil
}

func (r memoryJobs) ReconcileCounts(ctx context.Context) ([]store.CountDrift, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	actual := map[string]int{}
	for _, app := range r.db.apps {
		actual[app.JobID]++
	}
	var drifts []store.CountDrift
	for id, job := range r.db.jobs {
		if job.ApplicationCount != actual[id] {
			drifts = append(drifts, store.CountDrift{JobID: id, Stored: job.ApplicationCount, Actual: actual[id]})
			job.ApplicationCount = actual[id]
			r.db.jobs[id] = job
		}
	}
	return drifts, nil
}

func (r memoryApps) decorate(app types.Application) types.Application {
	if job, ok := r.db.jobs[app.JobID]; ok {
		app.Job = &types.JobSummary{ID: job.ID, Title: job.Title, Company: job.Company, PostedBy: job.PostedBy}
	}
	if user, ok := r.db.users[app.UserID]; ok {
		app.Applicant = &types.UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	return app
}

func (r memoryApps) Get(ctx context.Context, id string) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	app, ok := r.db.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return r.decorate(app), nil
}

func (r memoryApps) GetByResume(ctx context.Context, resume string) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, app := range r.db.apps {
		if app.Resume == resume {
			return r.decorate(app), nil
		}
	}
	return types.Application{}, store.ErrNotFound
}

func (r memoryApps) Exists(ctx context.Context, jobID, userID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, app := range r.db.apps {
		if app.JobID == jobID && app.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Create increments the job count and inserts the application under one
// lock, like the SQL transaction.
func (r memoryApps) Create(ctx context.Context, app types.Application) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.createErr != nil {
		return types.Application{}, r.db.createErr
	}
	job, ok := r.db.jobs[app.JobID]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	for _, existing := range r.db.apps {
		if existing.JobID == app.JobID && existing.UserID == app.UserID {
			return types.Application{}, store.ErrConflict
		}
	}
	job.ApplicationCount++
	r.db.jobs[job.ID] = job
	now := time.Now().UTC()
	app.CreatedAt, app.UpdatedAt = now, now
	r.db.apps[app.ID] = app
	return r.decorate(app), nil
}

func (r memoryApps) UpdateStatus(ctx context.Context, id string, status types.ApplicationStatus) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	app, ok := r.db.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	r.db.apps[id] = app
	return r.decorate(app), nil
}

func (r memoryApps) list(match func(types.Application) bool) []types.Application {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var apps []types.Application
	for _, app := range r.db.apps {
		if match(app) {
			apps = append(apps, r.decorate(app))
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps
}

func (r memoryApps) ListByCompany(ctx context.Context, companyID string) ([]types.Application, error) {
	return r.list(func(app types.Application) bool {
		return r.db.jobs[app.JobID].PostedBy == companyID
	}), nil
}

func (r memoryApps) ListByJob(ctx context.Context, jobID string) ([]types.Application, error) {
	return r.list(func(app types.Application) bool { return app.JobID == jobID }), nil
}

func (r memoryApps) ListByApplicant(ctx context.Context, userID string) ([]types.Application, error) {
	return r.list(func(app types.Application) bool { return app.UserID == userID }), nil
}

// memoryStorage is an in-memory ResumeStorage.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memoryStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *memoryStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "id", nil
}

func resumeUpload(name, content string) *ResumeUpload {
	return &ResumeUpload{
		Filename: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func isKind(err error, kind Kind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}
