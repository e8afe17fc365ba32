package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type mockAuditRepo struct {
	assignments map[string]models.AuditAssignment
	seq         int
}

func (m *mockAuditRepo) Create(ctx context.Context, assignment *models.AuditAssignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.AuditAssignment)
	}
	m.seq++
	assignment.ID = "assign-" + string(rune('0'+m.seq))
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAuditRepo) ListByFolder(ctx context.Context, folderID string) ([]models.AuditAssignment, error) {
	var out []models.AuditAssignment
	for _, a := range m.assignments {
		if a.FolderID == folderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) FindByFolderAndAuditor(ctx context.Context, folderID, auditorID string) (*models.AuditAssignment, error) {
	for _, a := range m.assignments {
		if a.FolderID == folderID && a.AuditorID == auditorID {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuditRepo) UpdateDecision(ctx context.Context, id string, decision models.AuditDecision, remarks string, submittedAt time.Time) error {
	a := m.assignments[id]
	a.Decision = decision
	a.Remarks = remarks
	a.SubmittedAt = &submittedAt
	m.assignments[id] = a
	return nil
}

func (m *mockAuditRepo) CountPending(ctx context.Context, folderID string) (int, error) {
	count := 0
	for _, a := range m.assignments {
		if a.FolderID == folderID && a.Decision == models.AuditDecisionPending {
			count++
		}
	}
	return count, nil
}

func newAuditFixture(t *testing.T, status models.FolderStatus) (*AuditService, *mockFolderRepo, *mockAuditRepo) {
	t.Helper()
	folderRepo := seedFolder(status, false)
	folders := newTestFolderService(folderRepo, nil, nil)
	auditRepo := &mockAuditRepo{}
	return NewAuditService(auditRepo, folders, nil), folderRepo, auditRepo
}

func TestAuditServiceAssignMovesFolderUnderAudit(t *testing.T) {
	svc, folderRepo, auditRepo := newAuditFixture(t, models.StatusApprovedCoordinator)

	assignments, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, []string{"aud-1", "aud-2"})
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	require.Equal(t, models.StatusUnderAudit, folderRepo.folders["folder-1"].Status)
	require.Len(t, auditRepo.assignments, 2)
}

func TestAuditServiceAssignFailsFromWrongStatus(t *testing.T) {
	svc, _, auditRepo := newAuditFixture(t, models.StatusDraft)

	_, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, []string{"aud-1"})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	// No assignment rows on an aborted transition.
	require.Empty(t, auditRepo.assignments)
}

func TestAuditServiceAssignRequiresAuditors(t *testing.T) {
	svc, _, _ := newAuditFixture(t, models.StatusApprovedCoordinator)

	_, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, nil)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuditServiceLastVerdictCompletesAudit(t *testing.T) {
	svc, folderRepo, _ := newAuditFixture(t, models.StatusApprovedCoordinator)

	_, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, []string{"aud-1", "aud-2"})
	require.NoError(t, err)

	_, err = svc.SubmitDecision(context.Background(), "folder-1", "aud-1", AuditDecisionRequest{Decision: models.AuditDecisionApproved})
	require.NoError(t, err)
	require.Equal(t, models.StatusUnderAudit, folderRepo.folders["folder-1"].Status)

	_, err = svc.SubmitDecision(context.Background(), "folder-1", "aud-2", AuditDecisionRequest{Decision: models.AuditDecisionRejected, Remarks: "log gaps"})
	require.NoError(t, err)
	require.Equal(t, models.StatusAuditCompleted, folderRepo.folders["folder-1"].Status)
}

func TestAuditServiceRejectsDoubleVerdict(t *testing.T) {
	svc, _, _ := newAuditFixture(t, models.StatusApprovedCoordinator)

	_, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, []string{"aud-1", "aud-2"})
	require.NoError(t, err)

	_, err = svc.SubmitDecision(context.Background(), "folder-1", "aud-1", AuditDecisionRequest{Decision: models.AuditDecisionApproved})
	require.NoError(t, err)

	_, err = svc.SubmitDecision(context.Background(), "folder-1", "aud-1", AuditDecisionRequest{Decision: models.AuditDecisionRejected})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAuditServiceRejectsUnassignedAuditor(t *testing.T) {
	svc, _, _ := newAuditFixture(t, models.StatusApprovedCoordinator)

	_, err := svc.Assign(context.Background(), "folder-1", "conv-1", models.RoleConvener, []string{"aud-1"})
	require.NoError(t, err)

	_, err = svc.SubmitDecision(context.Background(), "folder-1", "aud-9", AuditDecisionRequest{Decision: models.AuditDecisionApproved})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
