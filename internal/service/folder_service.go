package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type folderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, int, error)
	Create(ctx context.Context, folder *models.Folder) error
	UpdateSection(ctx context.Context, folderID, section string, content json.RawMessage) error
	UpdateStatus(ctx context.Context, folderID string, status models.FolderStatus, submittedAt *time.Time, firstActivityCompleted bool) error
	CountByStatus(ctx context.Context, filter models.FolderFilter) ([]models.StatusCount, error)
}

type historyRecorder interface {
	Record(ctx context.Context, entry *models.FolderStatusHistory) error
	ListByFolder(ctx context.Context, folderID string) ([]models.FolderStatusHistory, error)
}

type lifecycleNotifier interface {
	NotifyStatusChange(ctx context.Context, folder *models.Folder, previous models.FolderStatus, actorID string) error
}

type finalWindowChecker interface {
	CanEditForFinalSubmission(ctx context.Context, term, department string) (bool, error)
}

// CreateFolderRequest describes folder creation payload.
type CreateFolderRequest struct {
	CourseCode  string `json:"course_code" validate:"required"`
	CourseTitle string `json:"course_title" validate:"required"`
	Section     string `json:"section" validate:"required"`
	Term        string `json:"term" validate:"required"`
	Department  string `json:"department" validate:"required"`
}

// FolderDetail is a folder plus the editability verdict for the caller.
type FolderDetail struct {
	models.Folder
	CanEdit bool `json:"can_edit"`
}

// DecideRequest describes a reviewer decision payload.
type DecideRequest struct {
	Action models.FolderAction `json:"action" validate:"required"`
	Notes  string              `json:"notes"`
}

// FolderService orchestrates the folder lifecycle: edits gated by the
// permission evaluator, submissions and reviewer decisions gated by the
// status registry, with history and notifications as side effects.
type FolderService struct {
	repo      folderRepository
	registry  *StatusRegistry
	evaluator *PermissionEvaluator
	sessions  *SessionManager
	history   historyRecorder
	notifier  lifecycleNotifier
	deadlines finalWindowChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFolderService constructs FolderService.
func NewFolderService(repo folderRepository, registry *StatusRegistry, evaluator *PermissionEvaluator, sessions *SessionManager, history historyRecorder, notifier lifecycleNotifier, deadlines finalWindowChecker, validate *validator.Validate, logger *zap.Logger) *FolderService {
	if registry == nil {
		registry = NewStatusRegistry()
	}
	if evaluator == nil {
		evaluator = NewPermissionEvaluator()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{
		repo:      repo,
		registry:  registry,
		evaluator: evaluator,
		sessions:  sessions,
		history:   history,
		notifier:  notifier,
		deadlines: deadlines,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new folder in DRAFT for the calling faculty member.
func (s *FolderService) Create(ctx context.Context, facultyID string, req CreateFolderRequest) (*models.Folder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload")
	}
	folder := &models.Folder{
		CourseCode:  req.CourseCode,
		CourseTitle: req.CourseTitle,
		Section:     req.Section,
		FacultyID:   facultyID,
		Term:        req.Term,
		Department:  req.Department,
		Status:      models.StatusDraft,
		Sections:    models.SectionContents{},
	}
	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create folder")
	}
	return folder, nil
}

// Get loads a folder and evaluates editability for the caller.
func (s *FolderService) Get(ctx context.Context, folderID string, rc models.ReviewContext) (*FolderDetail, error) {
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	canEdit, err := s.canEdit(ctx, folder, rc)
	if err != nil {
		return nil, err
	}
	return &FolderDetail{Folder: *folder, CanEdit: canEdit}, nil
}

// List returns folders matching the filter with pagination metadata.
func (s *FolderService) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, *models.Pagination, error) {
	folders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	size := filter.Limit
	if size <= 0 {
		size = 20
	}
	page := filter.Offset/size + 1
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return folders, pagination, nil
}

// History returns a folder's transition trail, oldest first.
func (s *FolderService) History(ctx context.Context, folderID string) ([]models.FolderStatusHistory, error) {
	if _, err := s.loadFolder(ctx, folderID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	entries, err := s.history.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return entries, nil
}

// StatusCounts returns the dashboard status breakdown.
func (s *FolderService) StatusCounts(ctx context.Context, filter models.FolderFilter) ([]models.StatusCount, error) {
	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count folders")
	}
	return counts, nil
}

// AttemptEdit gates a section mutation on editability and routes it
// into the caller's autosave session. A denied attempt buffers nothing.
func (s *FolderService) AttemptEdit(ctx context.Context, folderID, sessionKey, section string, content json.RawMessage, rc models.ReviewContext) error {
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return err
	}
	canEdit, err := s.canEdit(ctx, folder, rc)
	if err != nil {
		return err
	}
	if !canEdit {
		return appErrors.Clone(appErrors.ErrPermissionDenied,
			fmt.Sprintf("folder is not editable in status %s", folder.Status))
	}
	coordinator, err := s.sessions.Session(folderID, sessionKey)
	if err != nil {
		return err
	}
	return coordinator.Change(section, content)
}

// FlushEdits forces an immediate save of the caller's session buffer.
func (s *FolderService) FlushEdits(ctx context.Context, folderID, sessionKey string) error {
	coordinator, err := s.sessions.Session(folderID, sessionKey)
	if err != nil {
		return err
	}
	return coordinator.Flush(ctx)
}

// CloseEditingSession flushes and discards the caller's session.
func (s *FolderService) CloseEditingSession(ctx context.Context, folderID, sessionKey string) error {
	return s.sessions.CloseSession(ctx, folderID, sessionKey)
}

// HideSession re-arms the debounce when the client tab goes hidden so a
// pending edit gets a prompt save. Best-effort: nothing to surface.
func (s *FolderService) HideSession(folderID, sessionKey string) error {
	coordinator, err := s.sessions.Session(folderID, sessionKey)
	if err != nil {
		return err
	}
	coordinator.Hide()
	return nil
}

// ReleaseSession handles the client's unload beacon. It never blocks
// and guarantees nothing; unsaved sections are logged for diagnosis.
func (s *FolderService) ReleaseSession(folderID, sessionKey string) error {
	coordinator, err := s.sessions.Session(folderID, sessionKey)
	if err != nil {
		return err
	}
	coordinator.BeforeUnload()
	return nil
}

// Submit moves a folder into SUBMITTED. Legal from DRAFT and the
// rejected re-entry states, plus the second-cycle exception from
// APPROVED_BY_HOD once the first activity is completed. Buffered edits
// are flushed first so reviewers see the submitted snapshot.
func (s *FolderService) Submit(ctx context.Context, folderID, facultyID string) (*models.Folder, error) {
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "folder belongs to another faculty member")
	}
	secondCycle := folder.Status == models.StatusApprovedByHOD && folder.FirstActivityCompleted
	if !s.registry.IsSubmittableFrom(folder.Status) && !secondCycle {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("folder cannot be submitted from status %s", folder.Status))
	}
	next, err := s.registry.NextStatus(folder.Status, models.ActionSubmit)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.FlushFolder(ctx, folderID); err != nil {
		return nil, err
	}
	previous := folder.Status
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, folderID, next, &now, folder.FirstActivityCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update folder status")
	}
	folder.Status = next
	folder.SubmittedAt = &now
	s.recordHistory(ctx, folder, facultyID, "submitted for review")
	s.notify(ctx, folder, previous, facultyID)
	return folder, nil
}

// Decide applies a reviewer action. The role gate runs before the
// transition lookup: a coordinator poking an HOD-stage folder gets
// RoleMismatch even when the action itself would be table-legal.
func (s *FolderService) Decide(ctx context.Context, folderID, actorID string, actorRole models.UserRole, req DecideRequest) (*models.Folder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Action == models.ActionSubmit {
		// Submission carries ownership, second-cycle and flush semantics
		// that live in Submit; it is never a reviewer decision.
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "folders are submitted by their owning faculty member")
	}
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	stageRole, stageErr := s.registry.StageRole(folder.Status)
	if stageErr == nil && actorRole != stageRole && actorRole != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch,
			fmt.Sprintf("stage %s is owned by %s", folder.Status, stageRole))
	}
	next, err := s.registry.NextStatus(folder.Status, req.Action)
	if err != nil {
		return nil, err
	}

	firstActivity := folder.FirstActivityCompleted
	if next == models.StatusApprovedByHOD && !firstActivity {
		// First HOD approval closes the after-midterm cycle and opens
		// the final-submission window.
		firstActivity = true
	}

	previous := folder.Status
	if err := s.repo.UpdateStatus(ctx, folderID, next, folder.SubmittedAt, firstActivity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update folder status")
	}
	folder.Status = next
	folder.FirstActivityCompleted = firstActivity
	s.recordHistory(ctx, folder, actorID, req.Notes)
	s.notify(ctx, folder, previous, actorID)
	return folder, nil
}

func (s *FolderService) loadFolder(ctx context.Context, folderID string) (*models.Folder, error) {
	folder, err := s.repo.FindByID(ctx, folderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	return folder, nil
}

func (s *FolderService) canEdit(ctx context.Context, folder *models.Folder, rc models.ReviewContext) (bool, error) {
	finalWindow := rc.CanEditForFinalSubmission
	if s.deadlines != nil {
		open, err := s.deadlines.CanEditForFinalSubmission(ctx, folder.Term, folder.Department)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submission window")
		}
		finalWindow = open
	}
	return s.evaluator.CanEdit(EditPermissionInput{
		Status:                    folder.Status,
		FirstActivityCompleted:    folder.FirstActivityCompleted,
		CanEditForFinalSubmission: finalWindow,
		IsAuditMemberReview:       rc.IsAuditMemberReview(),
		IsConvenerReview:          rc.IsConvenerReview(),
		IsHODReview:               rc.IsHODReview(),
	}), nil
}

// History and notification writes are best-effort: a failure there must
// not roll back an already-committed status change.
func (s *FolderService) recordHistory(ctx context.Context, folder *models.Folder, actorID, notes string) {
	if s.history == nil {
		return
	}
	entry := &models.FolderStatusHistory{
		FolderID:  folder.ID,
		Status:    folder.Status,
		ChangedBy: actorID,
		Notes:     notes,
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record status history",
			zap.String("folder_id", folder.ID),
			zap.String("status", string(folder.Status)),
			zap.Error(err))
	}
}

func (s *FolderService) notify(ctx context.Context, folder *models.Folder, previous models.FolderStatus, actorID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStatusChange(ctx, folder, previous, actorID); err != nil {
		s.logger.Warn("failed to send status notification",
			zap.String("folder_id", folder.ID),
			zap.Error(err))
	}
}
