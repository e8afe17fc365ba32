package service

import (
	"fmt"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

// StatusRegistry enumerates folder lifecycle states and the legal
// transitions between them. It is the single source of truth consulted
// by FolderService before any status write.
type StatusRegistry struct {
	transitions map[models.FolderStatus]map[models.FolderAction]models.FolderStatus
	stageRoles  map[models.FolderStatus]models.UserRole
}

// NewStatusRegistry builds the registry with the folder workflow table.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{
		transitions: map[models.FolderStatus]map[models.FolderAction]models.FolderStatus{
			models.StatusDraft: {
				models.ActionSubmit: models.StatusSubmitted,
			},
			models.StatusSubmitted: {
				models.ActionStartReview: models.StatusUnderReviewByCoordinator,
				models.ActionReject:      models.StatusRejectedCoordinator,
			},
			models.StatusUnderReviewByCoordinator: {
				models.ActionApprove: models.StatusApprovedCoordinator,
				models.ActionReject:  models.StatusRejectedCoordinator,
			},
			models.StatusApprovedCoordinator: {
				models.ActionAssignAudit: models.StatusUnderAudit,
			},
			models.StatusUnderAudit: {
				models.ActionCompleteAudit: models.StatusAuditCompleted,
			},
			models.StatusAuditCompleted: {
				models.ActionApprove: models.StatusSubmittedToHOD,
				models.ActionReject:  models.StatusRejectedByConvener,
			},
			models.StatusSubmittedToHOD: {
				models.ActionStartReview: models.StatusUnderReviewByHOD,
			},
			models.StatusUnderReviewByHOD: {
				models.ActionApprove: models.StatusApprovedByHOD,
				models.ActionReject:  models.StatusRejectedByHOD,
			},
			models.StatusApprovedByHOD: {
				// Second cycle: the folder re-enters the pipeline for
				// the final (after final term) submission, or closes
				// out once that cycle is approved again.
				models.ActionSubmit:   models.StatusSubmitted,
				models.ActionComplete: models.StatusCompleted,
			},
			models.StatusRejectedCoordinator: {
				models.ActionSubmit: models.StatusSubmitted,
			},
			models.StatusRejectedByConvener: {
				models.ActionSubmit: models.StatusSubmitted,
			},
			models.StatusRejectedByHOD: {
				models.ActionSubmit: models.StatusSubmitted,
			},
			// COMPLETED is terminal: no outbound transitions.
		},
		stageRoles: map[models.FolderStatus]models.UserRole{
			models.StatusSubmitted:                models.RoleCoordinator,
			models.StatusUnderReviewByCoordinator: models.RoleCoordinator,
			models.StatusApprovedCoordinator:      models.RoleConvener,
			models.StatusUnderAudit:               models.RoleAuditMember,
			models.StatusAuditCompleted:           models.RoleConvener,
			models.StatusSubmittedToHOD:           models.RoleHOD,
			models.StatusUnderReviewByHOD:         models.RoleHOD,
			models.StatusApprovedByHOD:            models.RoleHOD,
		},
	}
}

// IsSubmittableFrom reports whether a faculty submission is legal from
// the given status. True only for DRAFT and the rejected re-entry
// states; the second-cycle exception from APPROVED_BY_HOD is gated
// separately by FolderService.
func (r *StatusRegistry) IsSubmittableFrom(status models.FolderStatus) bool {
	switch status {
	case models.StatusDraft,
		models.StatusRejectedCoordinator,
		models.StatusRejectedByConvener,
		models.StatusRejectedByHOD:
		return true
	default:
		return false
	}
}

// NextStatus resolves the target status for an action. An action not
// present in the table fails with InvalidTransition; the caller must
// not coerce to the nearest legal state.
func (r *StatusRegistry) NextStatus(status models.FolderStatus, action models.FolderAction) (models.FolderStatus, error) {
	actions, ok := r.transitions[status]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("no transitions from terminal status %s", status))
	}
	next, ok := actions[action]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("action %s is not allowed from status %s", action, status))
	}
	return next, nil
}

// StageRole returns the role that owns decisions at the given status.
func (r *StatusRegistry) StageRole(status models.FolderStatus) (models.UserRole, error) {
	role, ok := r.stageRoles[status]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("status %s has no review stage", status))
	}
	return role, nil
}
