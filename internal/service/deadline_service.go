package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type deadlineRepository interface {
	Upsert(ctx context.Context, deadline *models.FolderDeadline) error
	FindByTypeAndTerm(ctx context.Context, deadlineType models.DeadlineType, term, department string) (*models.FolderDeadline, error)
	List(ctx context.Context, term string) ([]models.FolderDeadline, error)
}

// SetDeadlineRequest describes a deadline upsert payload.
type SetDeadlineRequest struct {
	Type       models.DeadlineType `json:"type" validate:"required,oneof=FIRST_SUBMISSION FINAL_SUBMISSION"`
	Term       string              `json:"term" validate:"required"`
	Department string              `json:"department"`
	DueAt      time.Time           `json:"due_at" validate:"required"`
	Notes      string              `json:"notes"`
}

// DeadlineService manages submission deadlines and derives the
// final-submission editing window from them.
type DeadlineService struct {
	repo      deadlineRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDeadlineService constructs DeadlineService.
func NewDeadlineService(repo deadlineRepository, validate *validator.Validate, logger *zap.Logger) *DeadlineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Set creates or replaces the deadline for (type, term, department).
// Only admins and HODs may set deadlines.
func (s *DeadlineService) Set(ctx context.Context, actorRole models.UserRole, actorID string, req SetDeadlineRequest) (*models.FolderDeadline, error) {
	if actorRole != models.RoleAdmin && actorRole != models.RoleHOD {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins and HODs set deadlines")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deadline payload")
	}
	deadline := &models.FolderDeadline{
		Type:  req.Type,
		Term:  req.Term,
		DueAt: req.DueAt.UTC(),
		SetBy: actorID,
		Notes: req.Notes,
	}
	if req.Department != "" {
		deadline.Department = &req.Department
	}
	if err := s.repo.Upsert(ctx, deadline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save deadline")
	}
	return deadline, nil
}

// List returns all deadlines for a term.
func (s *DeadlineService) List(ctx context.Context, term string) ([]models.FolderDeadline, error) {
	deadlines, err := s.repo.List(ctx, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deadlines")
	}
	return deadlines, nil
}

// CanEditForFinalSubmission reports whether the final-submission window
// is open for a term and department. A department-scoped deadline wins
// over the term-wide one; no deadline at all leaves the window open.
func (s *DeadlineService) CanEditForFinalSubmission(ctx context.Context, term, department string) (bool, error) {
	deadline, err := s.repo.FindByTypeAndTerm(ctx, models.DeadlineFinalSubmission, term, department)
	if err != nil {
		if err == sql.ErrNoRows {
			return true, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deadline")
	}
	return !deadline.IsPassed(s.now()), nil
}
