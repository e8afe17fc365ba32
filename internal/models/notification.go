package models

import "time"

// NotificationType enumerates workflow notification categories.
type NotificationType string

const (
	NotificationFolderSubmitted NotificationType = "FOLDER_SUBMITTED"
	NotificationFolderApproved  NotificationType = "FOLDER_APPROVED"
	NotificationFolderReturned  NotificationType = "FOLDER_RETURNED"
	NotificationAuditAssigned   NotificationType = "AUDIT_ASSIGNED"
	NotificationReportReady     NotificationType = "REPORT_READY"
)

// Notification is a per-user workflow event record.
type Notification struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	FolderID       *string          `db:"folder_id" json:"folder_id,omitempty"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	AcknowledgedAt *time.Time       `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
