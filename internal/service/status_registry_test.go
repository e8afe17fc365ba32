package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

func TestStatusRegistryHappyPath(t *testing.T) {
	registry := NewStatusRegistry()

	steps := []struct {
		from   models.FolderStatus
		action models.FolderAction
		want   models.FolderStatus
	}{
		{models.StatusDraft, models.ActionSubmit, models.StatusSubmitted},
		{models.StatusSubmitted, models.ActionStartReview, models.StatusUnderReviewByCoordinator},
		{models.StatusUnderReviewByCoordinator, models.ActionApprove, models.StatusApprovedCoordinator},
		{models.StatusApprovedCoordinator, models.ActionAssignAudit, models.StatusUnderAudit},
		{models.StatusUnderAudit, models.ActionCompleteAudit, models.StatusAuditCompleted},
		{models.StatusAuditCompleted, models.ActionApprove, models.StatusSubmittedToHOD},
		{models.StatusSubmittedToHOD, models.ActionStartReview, models.StatusUnderReviewByHOD},
		{models.StatusUnderReviewByHOD, models.ActionApprove, models.StatusApprovedByHOD},
		{models.StatusApprovedByHOD, models.ActionComplete, models.StatusCompleted},
	}

	for _, step := range steps {
		next, err := registry.NextStatus(step.from, step.action)
		require.NoError(t, err, "from %s action %s", step.from, step.action)
		require.Equal(t, step.want, next)
	}
}

func TestStatusRegistryRejectionReEntry(t *testing.T) {
	registry := NewStatusRegistry()

	for _, rejected := range []models.FolderStatus{
		models.StatusRejectedCoordinator,
		models.StatusRejectedByConvener,
		models.StatusRejectedByHOD,
	} {
		next, err := registry.NextStatus(rejected, models.ActionSubmit)
		require.NoError(t, err)
		require.Equal(t, models.StatusSubmitted, next)
	}
}

func TestStatusRegistryCompletedIsTerminal(t *testing.T) {
	registry := NewStatusRegistry()

	for _, action := range []models.FolderAction{
		models.ActionSubmit,
		models.ActionStartReview,
		models.ActionApprove,
		models.ActionReject,
		models.ActionAssignAudit,
		models.ActionCompleteAudit,
		models.ActionComplete,
	} {
		_, err := registry.NextStatus(models.StatusCompleted, action)
		require.Error(t, err)
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	}
}

func TestStatusRegistryIllegalTransitions(t *testing.T) {
	registry := NewStatusRegistry()

	cases := []struct {
		from   models.FolderStatus
		action models.FolderAction
	}{
		{models.StatusDraft, models.ActionApprove},
		{models.StatusSubmitted, models.ActionSubmit},
		{models.StatusUnderAudit, models.ActionApprove},
		{models.StatusApprovedCoordinator, models.ActionReject},
		{models.StatusSubmittedToHOD, models.ActionApprove},
	}
	for _, tc := range cases {
		_, err := registry.NextStatus(tc.from, tc.action)
		require.Error(t, err, "from %s action %s", tc.from, tc.action)
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	}
}

func TestStatusRegistryIsSubmittableFrom(t *testing.T) {
	registry := NewStatusRegistry()

	submittable := map[models.FolderStatus]bool{
		models.StatusDraft:                    true,
		models.StatusRejectedCoordinator:      true,
		models.StatusRejectedByConvener:       true,
		models.StatusRejectedByHOD:            true,
		models.StatusSubmitted:                false,
		models.StatusUnderReviewByCoordinator: false,
		models.StatusApprovedCoordinator:      false,
		models.StatusUnderAudit:               false,
		models.StatusAuditCompleted:           false,
		models.StatusSubmittedToHOD:           false,
		models.StatusUnderReviewByHOD:         false,
		models.StatusApprovedByHOD:            false,
		models.StatusCompleted:                false,
	}
	for status, want := range submittable {
		require.Equal(t, want, registry.IsSubmittableFrom(status), "status %s", status)
	}
}

func TestStatusRegistryStageRoles(t *testing.T) {
	registry := NewStatusRegistry()

	role, err := registry.StageRole(models.StatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, models.RoleCoordinator, role)

	role, err = registry.StageRole(models.StatusUnderAudit)
	require.NoError(t, err)
	require.Equal(t, models.RoleAuditMember, role)

	role, err = registry.StageRole(models.StatusAuditCompleted)
	require.NoError(t, err)
	require.Equal(t, models.RoleConvener, role)

	role, err = registry.StageRole(models.StatusUnderReviewByHOD)
	require.NoError(t, err)
	require.Equal(t, models.RoleHOD, role)

	_, err = registry.StageRole(models.StatusDraft)
	require.Error(t, err)
}
