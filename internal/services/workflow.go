package services

import (
	"fmt"
	"strings"

	"github.com/hireboard/apiserver/types"
)

var strictTransitions = map[types.ApplicationStatus][]types.ApplicationStatus{
	types.StatusPending:  {types.StatusReviewed},
	types.StatusReviewed: {types.StatusAccepted, types.StatusRejected},
}

// StatusWorkflow decides which status changes are legal. In loose mode any
// valid status may follow any other; strict mode only allows
// pending -> reviewed -> {accepted, rejected}. Re-applying the current
// status is always allowed.
type StatusWorkflow struct {
	Strict bool
}

// ParseStatus accepts exactly one of the four status values.
func ParseStatus(raw string) (types.ApplicationStatus, error) {
	status := types.ApplicationStatus(strings.TrimSpace(raw))
	if status == "" {
		return "", validationError("status is required")
	}
	if !status.Valid() {
		return "", validationError("invalid status; must be one of pending, reviewed, rejected, accepted")
	}
	return status, nil
}

// Check fails with a validation error when from -> to is not allowed.
func (w StatusWorkflow) Check(from, to types.ApplicationStatus) error {
	if !to.Valid() {
		return validationError("invalid status")
	}
	if !w.Strict || from == to {
		return nil
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return nil
		}
	}
	return validationError(fmt.Sprintf("cannot change status from %s to %s", from, to))
}
