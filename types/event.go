package types

import "time"

// Event channel names published by the application workflow.
const (
	EventApplicationSubmitted     = "application.submitted"
	EventApplicationStatusChanged = "application.status_changed"
)

// ApplicationEvent is the JSON payload published for application changes.
type ApplicationEvent struct {
	Type           string            `json:"type"`
	ApplicationID  string            `json:"applicationId"`
	JobID          string            `json:"jobId"`
	ApplicantID    string            `json:"applicantId"`
	CompanyID      string            `json:"companyId"`
	Status         ApplicationStatus `json:"status"`
	PreviousStatus ApplicationStatus `json:"previousStatus,omitempty"`
	OccurredAt     time.Time         `json:"occurredAt"`
}
