package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type mockFolderRepo struct {
	folders       map[string]models.Folder
	sectionWrites []persistedWrite
	statusWrites  []models.FolderStatus
	counts        []models.StatusCount
}

func (m *mockFolderRepo) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	if f, ok := m.folders[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFolderRepo) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, int, error) {
	list := make([]models.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		list = append(list, f)
	}
	return list, len(list), nil
}

func (m *mockFolderRepo) Create(ctx context.Context, folder *models.Folder) error {
	if m.folders == nil {
		m.folders = make(map[string]models.Folder)
	}
	if folder.ID == "" {
		folder.ID = "new-folder"
	}
	m.folders[folder.ID] = *folder
	return nil
}

func (m *mockFolderRepo) UpdateSection(ctx context.Context, folderID, section string, content json.RawMessage) error {
	m.sectionWrites = append(m.sectionWrites, persistedWrite{section: section, content: string(content)})
	if f, ok := m.folders[folderID]; ok {
		if f.Sections == nil {
			f.Sections = models.SectionContents{}
		}
		f.Sections[section] = append(json.RawMessage(nil), content...)
		m.folders[folderID] = f
	}
	return nil
}

func (m *mockFolderRepo) UpdateStatus(ctx context.Context, folderID string, status models.FolderStatus, submittedAt *time.Time, firstActivityCompleted bool) error {
	m.statusWrites = append(m.statusWrites, status)
	if f, ok := m.folders[folderID]; ok {
		f.Status = status
		f.SubmittedAt = submittedAt
		f.FirstActivityCompleted = firstActivityCompleted
		m.folders[folderID] = f
	}
	return nil
}

func (m *mockFolderRepo) CountByStatus(ctx context.Context, filter models.FolderFilter) ([]models.StatusCount, error) {
	return m.counts, nil
}

type mockHistoryRecorder struct {
	entries []models.FolderStatusHistory
}

func (m *mockHistoryRecorder) Record(ctx context.Context, entry *models.FolderStatusHistory) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistoryRecorder) ListByFolder(ctx context.Context, folderID string) ([]models.FolderStatusHistory, error) {
	return m.entries, nil
}

type mockNotifier struct {
	events []models.FolderStatus
}

func (m *mockNotifier) NotifyStatusChange(ctx context.Context, folder *models.Folder, previous models.FolderStatus, actorID string) error {
	m.events = append(m.events, folder.Status)
	return nil
}

type mockDeadlines struct {
	finalOpen bool
}

func (m *mockDeadlines) CanEditForFinalSubmission(ctx context.Context, term, department string) (bool, error) {
	return m.finalOpen, nil
}

func newTestFolderService(repo *mockFolderRepo, history *mockHistoryRecorder, notifier *mockNotifier) *FolderService {
	sessions := NewSessionManager(repo.UpdateSection, SessionManagerConfig{
		DebounceWindow: time.Hour,
		PersistTimeout: time.Second,
	}, nil, nil)
	// A typed-nil pointer passed through an interface parameter is not a
	// nil interface, so always hand the service live mocks.
	if history == nil {
		history = &mockHistoryRecorder{}
	}
	if notifier == nil {
		notifier = &mockNotifier{}
	}
	return NewFolderService(repo, nil, nil, sessions, history, notifier, &mockDeadlines{}, nil, nil)
}

func seedFolder(status models.FolderStatus, firstActivity bool) *mockFolderRepo {
	return &mockFolderRepo{folders: map[string]models.Folder{
		"folder-1": {
			ID:                     "folder-1",
			CourseCode:             "SE-301",
			CourseTitle:            "Software Construction",
			FacultyID:              "fac-1",
			Term:                   "FALL-2026",
			Department:             "SE",
			Status:                 status,
			FirstActivityCompleted: firstActivity,
			Sections:               models.SectionContents{},
		},
	}}
}

func TestFolderServiceCreateStartsInDraft(t *testing.T) {
	repo := &mockFolderRepo{}
	svc := newTestFolderService(repo, nil, nil)

	folder, err := svc.Create(context.Background(), "fac-1", CreateFolderRequest{
		CourseCode:  "SE-301",
		CourseTitle: "Software Construction",
		Section:     "A",
		Term:        "FALL-2026",
		Department:  "SE",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, folder.Status)
	require.Equal(t, "fac-1", folder.FacultyID)
}

func TestFolderServiceCreateValidatesPayload(t *testing.T) {
	svc := newTestFolderService(&mockFolderRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "fac-1", CreateFolderRequest{CourseCode: "SE-301"})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestFolderServiceAttemptEditBuffersWhenEditable(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	err := svc.AttemptEdit(context.Background(), "folder-1", "sess-a", "COURSE_OUTLINE", json.RawMessage(`{"v":1}`), models.ReviewContext{UserID: "fac-1", Role: models.RoleFaculty})
	require.NoError(t, err)

	// The edit is buffered, not yet persisted.
	require.Empty(t, repo.sectionWrites)

	require.NoError(t, svc.FlushEdits(context.Background(), "folder-1", "sess-a"))
	require.Len(t, repo.sectionWrites, 1)
	require.Equal(t, "COURSE_OUTLINE", repo.sectionWrites[0].section)
}

func TestFolderServiceAttemptEditDeniedOnSubmittedFolder(t *testing.T) {
	repo := seedFolder(models.StatusSubmitted, false)
	svc := newTestFolderService(repo, nil, nil)

	err := svc.AttemptEdit(context.Background(), "folder-1", "sess-a", "COURSE_OUTLINE", json.RawMessage(`{"v":1}`), models.ReviewContext{UserID: "fac-1", Role: models.RoleFaculty})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	// Denial buffers nothing: a later flush writes nothing.
	require.NoError(t, svc.FlushEdits(context.Background(), "folder-1", "sess-a"))
	require.Empty(t, repo.sectionWrites)
}

func TestFolderServiceAttemptEditDeniedForAuditMember(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	err := svc.AttemptEdit(context.Background(), "folder-1", "sess-a", "COURSE_OUTLINE", json.RawMessage(`{}`), models.ReviewContext{UserID: "aud-1", Role: models.RoleAuditMember})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))
}

func TestFolderServiceSubmitFromDraft(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	history := &mockHistoryRecorder{}
	notifier := &mockNotifier{}
	svc := newTestFolderService(repo, history, notifier)

	folder, err := svc.Submit(context.Background(), "folder-1", "fac-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, folder.Status)
	require.NotNil(t, folder.SubmittedAt)
	require.Len(t, history.entries, 1)
	require.Equal(t, models.StatusSubmitted, history.entries[0].Status)
	require.Equal(t, []models.FolderStatus{models.StatusSubmitted}, notifier.events)
}

func TestFolderServiceSubmitFlushesBufferedEdits(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	require.NoError(t, svc.AttemptEdit(context.Background(), "folder-1", "sess-a", "TITLE_PAGE", json.RawMessage(`{"v":1}`), models.ReviewContext{UserID: "fac-1", Role: models.RoleFaculty}))

	_, err := svc.Submit(context.Background(), "folder-1", "fac-1")
	require.NoError(t, err)
	require.Len(t, repo.sectionWrites, 1)
}

func TestFolderServiceSubmitRejectsForeignFolder(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	_, err := svc.Submit(context.Background(), "folder-1", "fac-2")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestFolderServiceSubmitFromIllegalStatus(t *testing.T) {
	for _, status := range []models.FolderStatus{
		models.StatusSubmitted,
		models.StatusUnderAudit,
		models.StatusCompleted,
	} {
		repo := seedFolder(status, false)
		svc := newTestFolderService(repo, nil, nil)

		_, err := svc.Submit(context.Background(), "folder-1", "fac-1")
		require.Error(t, err, "status %s", status)
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	}
}

func TestFolderServiceSecondCycleSubmission(t *testing.T) {
	// APPROVED_BY_HOD with the first activity completed re-enters the
	// pipeline; without it, submission stays illegal.
	repo := seedFolder(models.StatusApprovedByHOD, true)
	svc := newTestFolderService(repo, nil, nil)

	folder, err := svc.Submit(context.Background(), "folder-1", "fac-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, folder.Status)
	require.True(t, folder.FirstActivityCompleted)

	repo = seedFolder(models.StatusApprovedByHOD, false)
	svc = newTestFolderService(repo, nil, nil)
	_, err = svc.Submit(context.Background(), "folder-1", "fac-1")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestFolderServiceDecideRoleGateRunsFirst(t *testing.T) {
	// HOD acting on a coordinator-stage folder: RoleMismatch wins even
	// though START_REVIEW is table-legal from SUBMITTED.
	repo := seedFolder(models.StatusSubmitted, false)
	svc := newTestFolderService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "folder-1", "hod-1", models.RoleHOD, DecideRequest{Action: models.ActionStartReview})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrRoleMismatch))
}

func TestFolderServiceDecideIllegalActionAtOwnedStage(t *testing.T) {
	repo := seedFolder(models.StatusSubmitted, false)
	svc := newTestFolderService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "folder-1", "coord-1", models.RoleCoordinator, DecideRequest{Action: models.ActionComplete})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestFolderServiceDecideAdminBypassesRoleGate(t *testing.T) {
	repo := seedFolder(models.StatusSubmitted, false)
	svc := newTestFolderService(repo, nil, nil)

	folder, err := svc.Decide(context.Background(), "folder-1", "admin-1", models.RoleAdmin, DecideRequest{Action: models.ActionStartReview})
	require.NoError(t, err)
	require.Equal(t, models.StatusUnderReviewByCoordinator, folder.Status)
}

func TestFolderServiceDecideCoordinatorApproval(t *testing.T) {
	repo := seedFolder(models.StatusUnderReviewByCoordinator, false)
	history := &mockHistoryRecorder{}
	notifier := &mockNotifier{}
	svc := newTestFolderService(repo, history, notifier)

	folder, err := svc.Decide(context.Background(), "folder-1", "coord-1", models.RoleCoordinator, DecideRequest{Action: models.ActionApprove, Notes: "looks complete"})
	require.NoError(t, err)
	require.Equal(t, models.StatusApprovedCoordinator, folder.Status)
	require.Equal(t, "looks complete", history.entries[0].Notes)
	require.Len(t, notifier.events, 1)
}

func TestFolderServiceDecideFirstHODApprovalSetsFirstActivity(t *testing.T) {
	repo := seedFolder(models.StatusUnderReviewByHOD, false)
	svc := newTestFolderService(repo, nil, nil)

	folder, err := svc.Decide(context.Background(), "folder-1", "hod-1", models.RoleHOD, DecideRequest{Action: models.ActionApprove})
	require.NoError(t, err)
	require.Equal(t, models.StatusApprovedByHOD, folder.Status)
	require.True(t, folder.FirstActivityCompleted)
}

func TestFolderServiceDecideSecondHODApprovalCompletes(t *testing.T) {
	repo := seedFolder(models.StatusApprovedByHOD, true)
	svc := newTestFolderService(repo, nil, nil)

	folder, err := svc.Decide(context.Background(), "folder-1", "hod-1", models.RoleHOD, DecideRequest{Action: models.ActionComplete})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, folder.Status)
}

func TestFolderServiceDecideRejectionRoutesToRejectedState(t *testing.T) {
	cases := []struct {
		status models.FolderStatus
		role   models.UserRole
		want   models.FolderStatus
	}{
		{models.StatusUnderReviewByCoordinator, models.RoleCoordinator, models.StatusRejectedCoordinator},
		{models.StatusAuditCompleted, models.RoleConvener, models.StatusRejectedByConvener},
		{models.StatusUnderReviewByHOD, models.RoleHOD, models.StatusRejectedByHOD},
	}
	for _, tc := range cases {
		repo := seedFolder(tc.status, false)
		svc := newTestFolderService(repo, nil, nil)

		folder, err := svc.Decide(context.Background(), "folder-1", "rev-1", tc.role, DecideRequest{Action: models.ActionReject, Notes: "missing CLO mapping"})
		require.NoError(t, err, "status %s", tc.status)
		require.Equal(t, tc.want, folder.Status)
	}
}

func TestFolderServiceDecideNeverSubmits(t *testing.T) {
	// SUBMIT is table-legal from DRAFT, but only the owner's Submit path
	// may perform it: a reviewer decision carrying SUBMIT is rejected
	// before any transition work, leaving the folder untouched.
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "folder-1", "coord-1", models.RoleCoordinator, DecideRequest{Action: models.ActionSubmit})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrRoleMismatch))
	require.Empty(t, repo.statusWrites)

	// Nor may an HOD reopen an APPROVED_BY_HOD folder whose first
	// activity is still pending by deciding SUBMIT on it.
	repo = seedFolder(models.StatusApprovedByHOD, false)
	svc = newTestFolderService(repo, nil, nil)

	_, err = svc.Decide(context.Background(), "folder-1", "hod-1", models.RoleHOD, DecideRequest{Action: models.ActionSubmit})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrRoleMismatch))
	require.Empty(t, repo.statusWrites)
	require.Equal(t, models.StatusApprovedByHOD, repo.folders["folder-1"].Status)
}

func TestFolderServiceDecideOnDraftHasNoStage(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "folder-1", "coord-1", models.RoleCoordinator, DecideRequest{Action: models.ActionApprove})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestFolderServiceGetComputesCanEdit(t *testing.T) {
	repo := seedFolder(models.StatusDraft, false)
	svc := newTestFolderService(repo, nil, nil)

	detail, err := svc.Get(context.Background(), "folder-1", models.ReviewContext{UserID: "fac-1", Role: models.RoleFaculty})
	require.NoError(t, err)
	require.True(t, detail.CanEdit)

	detail, err = svc.Get(context.Background(), "folder-1", models.ReviewContext{UserID: "aud-1", Role: models.RoleAuditMember})
	require.NoError(t, err)
	require.False(t, detail.CanEdit)
}

func TestFolderServiceGetUnknownFolder(t *testing.T) {
	svc := newTestFolderService(&mockFolderRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing", models.ReviewContext{Role: models.RoleFaculty})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
