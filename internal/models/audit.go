package models

import "time"

// AuditDecision captures an audit member's verdict on an assigned folder.
type AuditDecision string

const (
	AuditDecisionPending  AuditDecision = "PENDING"
	AuditDecisionApproved AuditDecision = "APPROVED"
	AuditDecisionRejected AuditDecision = "REJECTED"
)

// AuditAssignment links an audit member to a folder under audit.
type AuditAssignment struct {
	ID          string        `db:"id" json:"id"`
	FolderID    string        `db:"folder_id" json:"folder_id"`
	AuditorID   string        `db:"auditor_id" json:"auditor_id"`
	AssignedBy  string        `db:"assigned_by" json:"assigned_by"`
	AssignedAt  time.Time     `db:"assigned_at" json:"assigned_at"`
	Decision    AuditDecision `db:"decision" json:"decision"`
	Remarks     string        `db:"remarks" json:"remarks"`
	SubmittedAt *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
}
