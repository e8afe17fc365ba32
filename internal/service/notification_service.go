package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type roleReader interface {
	FindIDsByRole(ctx context.Context, role models.UserRole, department string) ([]string, error)
}

// NotificationService records workflow notifications and resolves their
// audience from the folder's pipeline position.
type NotificationService struct {
	repo   notificationRepository
	users  roleReader
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, users roleReader, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, users: users, logger: logger}
}

// NotifyStatusChange fans a folder status change out to the parties the
// new status concerns: the owning faculty member on decisions, the next
// review stage on submissions.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, folder *models.Folder, previous models.FolderStatus, actorID string) error {
	label := fmt.Sprintf("%s (%s)", folder.CourseCode, folder.Term)
	switch folder.Status {
	case models.StatusSubmitted:
		return s.notifyRole(ctx, models.RoleCoordinator, folder, models.NotificationFolderSubmitted,
			"Folder submitted", fmt.Sprintf("Folder %s was submitted for review", label))
	case models.StatusUnderAudit:
		return s.notifyUser(ctx, folder.FacultyID, folder, models.NotificationAuditAssigned,
			"Folder under audit", fmt.Sprintf("Folder %s entered the audit stage", label))
	case models.StatusRejectedCoordinator, models.StatusRejectedByConvener, models.StatusRejectedByHOD:
		return s.notifyUser(ctx, folder.FacultyID, folder, models.NotificationFolderReturned,
			"Folder returned", fmt.Sprintf("Folder %s was returned for changes", label))
	case models.StatusApprovedCoordinator, models.StatusAuditCompleted, models.StatusSubmittedToHOD,
		models.StatusApprovedByHOD, models.StatusCompleted:
		return s.notifyUser(ctx, folder.FacultyID, folder, models.NotificationFolderApproved,
			"Folder approved", fmt.Sprintf("Folder %s moved from %s to %s", label, previous, folder.Status))
	default:
		return nil
	}
}

// NotifyReportReady tells the requester their export finished.
func (s *NotificationService) NotifyReportReady(ctx context.Context, userID, folderID string) error {
	notification := &models.Notification{
		UserID:   userID,
		Type:     models.NotificationReportReady,
		Title:    "Review report ready",
		Message:  "Your folder review report is ready for download",
		FolderID: &folderID,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return nil
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, *models.Pagination, error) {
	if limit <= 0 {
		limit = 20
	}
	notifications, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: offset/limit + 1, PageSize: limit, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead acknowledges a single notification.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead acknowledges every unread notification of a user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

func (s *NotificationService) notifyUser(ctx context.Context, userID string, folder *models.Folder, kind models.NotificationType, title, message string) error {
	notification := &models.Notification{
		UserID:   userID,
		Type:     kind,
		Title:    title,
		Message:  message,
		FolderID: &folder.ID,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return nil
}

func (s *NotificationService) notifyRole(ctx context.Context, role models.UserRole, folder *models.Folder, kind models.NotificationType, title, message string) error {
	if s.users == nil {
		return nil
	}
	ids, err := s.users.FindIDsByRole(ctx, role, folder.Department)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve notification audience")
	}
	for _, id := range ids {
		if err := s.notifyUser(ctx, id, folder, kind, title, message); err != nil {
			s.logger.Warn("failed to notify user", zap.String("user_id", id), zap.Error(err))
		}
	}
	return nil
}
