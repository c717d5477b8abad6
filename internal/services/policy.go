package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hireboard/apiserver/types"
)

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string
	Role   types.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == types.RoleAdmin
}

// RequireRole fails with a forbidden error unless the identity holds one
// of roles.
func RequireRole(identity Identity, roles ...types.Role) error {
	if slices.Contains(roles, identity.Role) {
		return nil
	}
	return forbiddenError(fmt.Sprintf("role %s is not allowed to perform this action", identity.Role))
}

// AuthorizeJobView lets companies see only their own postings in detail.
// Job seekers and admins may view any job.
func AuthorizeJobView(identity Identity, job types.Job) error {
	if identity.Role != types.RoleCompany {
		return nil
	}
	if job.PostedBy != identity.UserID {
		return forbiddenError("not authorized to view this job")
	}
	return nil
}

// AuthorizeJobOwner admits the owning company and admins.
func AuthorizeJobOwner(identity Identity, postedBy string) error {
	if identity.IsAdmin() {
		return nil
	}
	if identity.Role != types.RoleCompany || postedBy != identity.UserID {
		return forbiddenError("not authorized to manage this job")
	}
	return nil
}

// AuthorizeResume admits the applicant, the company owning the job and admins.
func AuthorizeResume(identity Identity, app types.Application) error {
	if identity.IsAdmin() || app.UserID == identity.UserID {
		return nil
	}
	if app.Job != nil && app.Job.PostedBy == identity.UserID {
		return nil
	}
	return forbiddenError("not authorized to access this resume")
}

// ValidateID checks identifier syntax and returns its canonical form.
func ValidateID(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", validationError(name + " is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", validationError("invalid " + name)
	}
	return parsed.String(), nil
}
