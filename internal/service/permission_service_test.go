package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
)

var allStatuses = []models.FolderStatus{
	models.StatusDraft,
	models.StatusSubmitted,
	models.StatusUnderReviewByCoordinator,
	models.StatusApprovedCoordinator,
	models.StatusRejectedCoordinator,
	models.StatusUnderAudit,
	models.StatusAuditCompleted,
	models.StatusRejectedByConvener,
	models.StatusSubmittedToHOD,
	models.StatusUnderReviewByHOD,
	models.StatusApprovedByHOD,
	models.StatusRejectedByHOD,
	models.StatusCompleted,
}

func TestCanEditAuditMemberAlwaysReadOnly(t *testing.T) {
	eval := NewPermissionEvaluator()

	for _, status := range allStatuses {
		for _, first := range []bool{true, false} {
			for _, final := range []bool{true, false} {
				got := eval.CanEdit(EditPermissionInput{
					Status:                    status,
					FirstActivityCompleted:    first,
					CanEditForFinalSubmission: final,
					IsAuditMemberReview:       true,
				})
				require.False(t, got, "status %s first=%v final=%v", status, first, final)
			}
		}
	}
}

func TestCanEditDraftAlwaysEditableForFaculty(t *testing.T) {
	eval := NewPermissionEvaluator()

	for _, first := range []bool{true, false} {
		for _, final := range []bool{true, false} {
			got := eval.CanEdit(EditPermissionInput{
				Status:                    models.StatusDraft,
				FirstActivityCompleted:    first,
				CanEditForFinalSubmission: final,
			})
			require.True(t, got)
		}
	}
}

func TestCanEditSecondSubmissionException(t *testing.T) {
	eval := NewPermissionEvaluator()

	require.True(t, eval.CanEdit(EditPermissionInput{
		Status:                 models.StatusApprovedByHOD,
		FirstActivityCompleted: true,
	}))
	require.False(t, eval.CanEdit(EditPermissionInput{
		Status:                 models.StatusApprovedByHOD,
		FirstActivityCompleted: false,
	}))
}

func TestCanEditSubmittedStatusesReadOnly(t *testing.T) {
	eval := NewPermissionEvaluator()

	submitted := []models.FolderStatus{
		models.StatusSubmitted,
		models.StatusUnderReviewByCoordinator,
		models.StatusApprovedCoordinator,
		models.StatusUnderAudit,
		models.StatusAuditCompleted,
		models.StatusSubmittedToHOD,
		models.StatusUnderReviewByHOD,
		models.StatusCompleted,
	}
	for _, status := range submitted {
		got := eval.CanEdit(EditPermissionInput{Status: status, FirstActivityCompleted: true})
		require.False(t, got, "status %s", status)
	}
}

func TestCanEditRejectedStatesBehaveLikeDraft(t *testing.T) {
	eval := NewPermissionEvaluator()

	for _, status := range []models.FolderStatus{
		models.StatusRejectedCoordinator,
		models.StatusRejectedByConvener,
		models.StatusRejectedByHOD,
	} {
		require.True(t, eval.CanEdit(EditPermissionInput{Status: status}), "faculty %s", status)
		require.True(t, eval.CanEdit(EditPermissionInput{Status: status, IsConvenerReview: true}), "convener %s", status)
		require.True(t, eval.CanEdit(EditPermissionInput{Status: status, IsHODReview: true}), "hod %s", status)
	}
}

func TestCanEditReviewerFlagsIgnoreSecondSubmission(t *testing.T) {
	eval := NewPermissionEvaluator()

	// Conveners and HODs reviewing follow the plain editable-state
	// rule: APPROVED_BY_HOD still resolves through its own branch
	// regardless of the reviewer flags.
	require.True(t, eval.CanEdit(EditPermissionInput{
		Status:                 models.StatusApprovedByHOD,
		FirstActivityCompleted: true,
		IsHODReview:            true,
	}))
	require.False(t, eval.CanEdit(EditPermissionInput{
		Status:           models.StatusApprovedByHOD,
		IsConvenerReview: true,
	}))
}

func TestCanEditIsDeterministic(t *testing.T) {
	eval := NewPermissionEvaluator()

	for _, status := range allStatuses {
		for _, first := range []bool{true, false} {
			in := EditPermissionInput{Status: status, FirstActivityCompleted: first}
			require.Equal(t, eval.CanEdit(in), eval.CanEdit(in), "status %s first=%v", status, first)
		}
	}
}

func TestCanEditFinalSubmissionFlagIsInert(t *testing.T) {
	eval := NewPermissionEvaluator()

	for _, status := range allStatuses {
		for _, first := range []bool{true, false} {
			with := eval.CanEdit(EditPermissionInput{Status: status, FirstActivityCompleted: first, CanEditForFinalSubmission: true})
			without := eval.CanEdit(EditPermissionInput{Status: status, FirstActivityCompleted: first, CanEditForFinalSubmission: false})
			require.Equal(t, with, without, "status %s first=%v", status, first)
		}
	}
}
