package service

import "github.com/qau-se/cfms-api/internal/models"

// EditPermissionInput carries everything CanEdit needs. The evaluator
// is pure: no I/O, no side effects, deterministic for identical inputs.
type EditPermissionInput struct {
	Status                 models.FolderStatus
	FirstActivityCompleted bool

	// CanEditForFinalSubmission is derived from the FINAL_SUBMISSION
	// deadline check. It is accepted for forward compatibility but not
	// currently consulted by any rule; pending product clarification
	// it stays an inert input rather than being wired into the logic.
	CanEditForFinalSubmission bool

	IsAuditMemberReview bool
	IsConvenerReview    bool
	IsHODReview         bool
}

// PermissionEvaluator derives folder editability from status plus the
// contextual role flags.
type PermissionEvaluator struct{}

// NewPermissionEvaluator constructs the evaluator.
func NewPermissionEvaluator() *PermissionEvaluator {
	return &PermissionEvaluator{}
}

var editableStatuses = map[models.FolderStatus]struct{}{
	models.StatusDraft:               {},
	models.StatusRejectedCoordinator: {},
	models.StatusRejectedByConvener:  {},
	models.StatusRejectedByHOD:       {},
}

var submittedStatuses = map[models.FolderStatus]struct{}{
	models.StatusSubmitted:                {},
	models.StatusUnderReviewByCoordinator: {},
	models.StatusApprovedCoordinator:      {},
	models.StatusUnderAudit:               {},
	models.StatusAuditCompleted:           {},
	models.StatusSubmittedToHOD:           {},
	models.StatusUnderReviewByHOD:         {},
	models.StatusCompleted:                {},
}

// CanEdit evaluates the ordered decision rules. The ordering is
// load-bearing: the audit short-circuit runs before any status check,
// and the APPROVED_BY_HOD branch must run before the generic
// submitted-statuses test because the two are not mutually exclusive.
func (e *PermissionEvaluator) CanEdit(in EditPermissionInput) bool {
	// Audit members never edit, only annotate.
	if in.IsAuditMemberReview {
		return false
	}

	canEditForSecondSubmission := in.Status == models.StatusApprovedByHOD && in.FirstActivityCompleted

	if _, submitted := submittedStatuses[in.Status]; submitted && !canEditForSecondSubmission {
		return false
	}

	if in.Status == models.StatusApprovedByHOD {
		return canEditForSecondSubmission
	}

	_, editable := editableStatuses[in.Status]

	// Convener/HOD in their own pending view follow the plain
	// editable-state rule, ignoring the second-submission exception.
	if in.IsConvenerReview || in.IsHODReview {
		return editable
	}

	return editable || canEditForSecondSubmission
}
