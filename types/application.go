package types

import "time"

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	// StatusPending is the initial state of every submission.
	StatusPending ApplicationStatus = "pending"

	// StatusReviewed means the company has looked at the application.
	StatusReviewed ApplicationStatus = "reviewed"

	// StatusRejected is terminal in the strict workflow.
	StatusRejected ApplicationStatus = "rejected"

	// StatusAccepted is terminal in the strict workflow.
	StatusAccepted ApplicationStatus = "accepted"
)

// Valid reports whether the status is one of the four known values.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusRejected, StatusAccepted:
		return true
	default:
		return false
	}
}

// Application is a job seeker's submission to a job. At most one exists
// per (JobID, UserID) pair.
type Application struct {
	// ID is the unique identifier of the application.
	ID string `json:"id" db:"id"`

	// JobID references the job applied to.
	JobID string `json:"jobId" db:"job_id"`

	// UserID references the applicant.
	UserID string `json:"userId" db:"user_id"`

	// Resume is the storage key of the uploaded résumé file.
	Resume string `json:"resume" db:"resume"`

	// CoverLetter may be empty.
	CoverLetter string `json:"coverLetter" db:"cover_letter"`

	// Status is the current review state.
	Status ApplicationStatus `json:"status" db:"status"`

	// Job and Applicant are populated on read paths for display.
	Job       *JobSummary  `json:"job,omitempty" db:"-"`
	Applicant *UserSummary `json:"user,omitempty" db:"-"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// JobSummary is the subset of job fields joined into application views.
type JobSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location,omitempty"`
	PostedBy   string `json:"postedBy"`
	PosterName string `json:"posterName,omitempty"`
}
