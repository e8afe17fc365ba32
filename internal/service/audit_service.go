package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, assignment *models.AuditAssignment) error
	ListByFolder(ctx context.Context, folderID string) ([]models.AuditAssignment, error)
	FindByFolderAndAuditor(ctx context.Context, folderID, auditorID string) (*models.AuditAssignment, error)
	UpdateDecision(ctx context.Context, id string, decision models.AuditDecision, remarks string, submittedAt time.Time) error
	CountPending(ctx context.Context, folderID string) (int, error)
}

type folderDecider interface {
	Decide(ctx context.Context, folderID, actorID string, actorRole models.UserRole, req DecideRequest) (*models.Folder, error)
}

// AuditDecisionRequest describes an audit member's verdict payload.
type AuditDecisionRequest struct {
	Decision models.AuditDecision `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remarks  string               `json:"remarks"`
}

// AuditService manages audit-member assignments. Once every assigned
// auditor has submitted a verdict the folder advances to
// AUDIT_COMPLETED automatically.
type AuditService struct {
	repo    auditRepository
	folders folderDecider
	logger  *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditRepository, folders folderDecider, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, folders: folders, logger: logger}
}

// Assign attaches audit members to a folder and moves it UNDER_AUDIT.
// The transition runs first so an illegal source status aborts before
// any assignment rows exist.
func (s *AuditService) Assign(ctx context.Context, folderID, actorID string, actorRole models.UserRole, auditorIDs []string) ([]models.AuditAssignment, error) {
	if len(auditorIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one auditor is required")
	}
	if _, err := s.folders.Decide(ctx, folderID, actorID, actorRole, DecideRequest{Action: models.ActionAssignAudit, Notes: "audit assigned"}); err != nil {
		return nil, err
	}
	assignments := make([]models.AuditAssignment, 0, len(auditorIDs))
	for _, auditorID := range auditorIDs {
		assignment := &models.AuditAssignment{
			FolderID:   folderID,
			AuditorID:  auditorID,
			AssignedBy: actorID,
			AssignedAt: time.Now().UTC(),
			Decision:   models.AuditDecisionPending,
		}
		if err := s.repo.Create(ctx, assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create audit assignment")
		}
		assignments = append(assignments, *assignment)
	}
	return assignments, nil
}

// ListAssignments returns the audit roster for a folder.
func (s *AuditService) ListAssignments(ctx context.Context, folderID string) ([]models.AuditAssignment, error) {
	assignments, err := s.repo.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit assignments")
	}
	return assignments, nil
}

// SubmitDecision records one auditor's verdict. The last outstanding
// verdict completes the audit stage.
func (s *AuditService) SubmitDecision(ctx context.Context, folderID, auditorID string, req AuditDecisionRequest) (*models.AuditAssignment, error) {
	if req.Decision != models.AuditDecisionApproved && req.Decision != models.AuditDecisionRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}
	assignment, err := s.repo.FindByFolderAndAuditor(ctx, folderID, auditorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no audit assignment for this folder")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit assignment")
	}
	if assignment.Decision != models.AuditDecisionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "audit decision already submitted")
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateDecision(ctx, assignment.ID, req.Decision, req.Remarks, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit decision")
	}
	assignment.Decision = req.Decision
	assignment.Remarks = req.Remarks
	assignment.SubmittedAt = &now

	pending, err := s.repo.CountPending(ctx, folderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending audits")
	}
	if pending == 0 {
		if _, err := s.folders.Decide(ctx, folderID, auditorID, models.RoleAuditMember, DecideRequest{Action: models.ActionCompleteAudit, Notes: "all audit verdicts in"}); err != nil {
			return nil, err
		}
	}
	return assignment, nil
}
