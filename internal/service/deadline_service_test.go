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

type mockDeadlineRepo struct {
	deadlines []models.FolderDeadline
}

func (m *mockDeadlineRepo) Upsert(ctx context.Context, deadline *models.FolderDeadline) error {
	for i, d := range m.deadlines {
		sameDept := (d.Department == nil && deadline.Department == nil) ||
			(d.Department != nil && deadline.Department != nil && *d.Department == *deadline.Department)
		if d.Type == deadline.Type && d.Term == deadline.Term && sameDept {
			m.deadlines[i] = *deadline
			return nil
		}
	}
	m.deadlines = append(m.deadlines, *deadline)
	return nil
}

func (m *mockDeadlineRepo) FindByTypeAndTerm(ctx context.Context, deadlineType models.DeadlineType, term, department string) (*models.FolderDeadline, error) {
	// Department-scoped match wins over the term-wide one.
	var termWide *models.FolderDeadline
	for i, d := range m.deadlines {
		if d.Type != deadlineType || d.Term != term {
			continue
		}
		if d.Department != nil && *d.Department == department {
			return &m.deadlines[i], nil
		}
		if d.Department == nil {
			termWide = &m.deadlines[i]
		}
	}
	if termWide != nil {
		return termWide, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDeadlineRepo) List(ctx context.Context, term string) ([]models.FolderDeadline, error) {
	var out []models.FolderDeadline
	for _, d := range m.deadlines {
		if d.Term == term {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestDeadlineServiceSetRequiresPrivilegedRole(t *testing.T) {
	svc := NewDeadlineService(&mockDeadlineRepo{}, nil, nil)

	req := SetDeadlineRequest{Type: models.DeadlineFinalSubmission, Term: "FALL-2026", DueAt: time.Now().Add(time.Hour)}
	for _, role := range []models.UserRole{models.RoleFaculty, models.RoleCoordinator, models.RoleAuditMember, models.RoleConvener} {
		_, err := svc.Set(context.Background(), role, "u-1", req)
		require.Error(t, err, "role %s", role)
		require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	}

	_, err := svc.Set(context.Background(), models.RoleHOD, "hod-1", req)
	require.NoError(t, err)
	_, err = svc.Set(context.Background(), models.RoleAdmin, "admin-1", req)
	require.NoError(t, err)
}

func TestDeadlineServiceSetValidatesType(t *testing.T) {
	svc := NewDeadlineService(&mockDeadlineRepo{}, nil, nil)

	_, err := svc.Set(context.Background(), models.RoleAdmin, "admin-1", SetDeadlineRequest{
		Type:  "MIDTERM",
		Term:  "FALL-2026",
		DueAt: time.Now(),
	})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDeadlineServiceFinalWindowOpenBeforeDueDate(t *testing.T) {
	repo := &mockDeadlineRepo{}
	svc := NewDeadlineService(repo, nil, nil)

	_, err := svc.Set(context.Background(), models.RoleAdmin, "admin-1", SetDeadlineRequest{
		Type:  models.DeadlineFinalSubmission,
		Term:  "FALL-2026",
		DueAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	open, err := svc.CanEditForFinalSubmission(context.Background(), "FALL-2026", "SE")
	require.NoError(t, err)
	require.True(t, open)
}

func TestDeadlineServiceFinalWindowClosesAfterDueDate(t *testing.T) {
	repo := &mockDeadlineRepo{}
	svc := NewDeadlineService(repo, nil, nil)
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	_, err := svc.Set(context.Background(), models.RoleAdmin, "admin-1", SetDeadlineRequest{
		Type:  models.DeadlineFinalSubmission,
		Term:  "FALL-2026",
		DueAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	open, err := svc.CanEditForFinalSubmission(context.Background(), "FALL-2026", "SE")
	require.NoError(t, err)
	require.False(t, open)
}

func TestDeadlineServiceNoDeadlineLeavesWindowOpen(t *testing.T) {
	svc := NewDeadlineService(&mockDeadlineRepo{}, nil, nil)

	open, err := svc.CanEditForFinalSubmission(context.Background(), "FALL-2026", "SE")
	require.NoError(t, err)
	require.True(t, open)
}

func TestDeadlineServiceDepartmentScopedDeadlineWins(t *testing.T) {
	repo := &mockDeadlineRepo{}
	svc := NewDeadlineService(repo, nil, nil)

	_, err := svc.Set(context.Background(), models.RoleAdmin, "admin-1", SetDeadlineRequest{
		Type:  models.DeadlineFinalSubmission,
		Term:  "FALL-2026",
		DueAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.Set(context.Background(), models.RoleAdmin, "admin-1", SetDeadlineRequest{
		Type:       models.DeadlineFinalSubmission,
		Term:       "FALL-2026",
		Department: "SE",
		DueAt:      time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	open, err := svc.CanEditForFinalSubmission(context.Background(), "FALL-2026", "SE")
	require.NoError(t, err)
	require.False(t, open)

	open, err = svc.CanEditForFinalSubmission(context.Background(), "FALL-2026", "CS")
	require.NoError(t, err)
	require.True(t, open)
}
