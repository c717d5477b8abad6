package types

import "time"

// JobType classifies the engagement offered by a posting.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeRemote     JobType = "remote"
)

// Valid reports whether the job type is supported.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeRemote:
		return true
	default:
		return false
	}
}

// Job represents a posting owned by a company account.
type Job struct {
	// ID is the unique identifier of the job.
	ID string `json:"id" db:"id"`

	// Title is the position name.
	Title string `json:"title" db:"title"`

	// Company is the display name of the hiring company.
	Company string `json:"company" db:"company"`

	// Salary is free text, e.g. "80k-100k EUR".
	Salary string `json:"salary" db:"salary"`

	// Location is free text.
	Location string `json:"location" db:"location"`

	// Description contains the full posting body.
	Description string `json:"description" db:"description"`

	// PostedBy is the ID of the owning company user.
	PostedBy string `json:"postedBy" db:"posted_by"`

	// Poster is populated on list views with the owner's public fields.
	Poster *UserSummary `json:"poster,omitempty" db:"-"`

	// ApplicationCount is maintained by the submission workflow and only
	// ever changes through an atomic increment.
	ApplicationCount int `json:"applicationCount" db:"application_count"`

	// SkillsRequired is an ordered list of skills.
	SkillsRequired []string `json:"skillsRequired" db:"skills_required"`

	// JobType is one of the JobType constants.
	JobType JobType `json:"jobType" db:"job_type"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the subset of user fields joined into other records.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
