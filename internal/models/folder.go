package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FolderStatus captures the lifecycle state of a course folder.
type FolderStatus string

const (
	StatusDraft                    FolderStatus = "DRAFT"
	StatusSubmitted                FolderStatus = "SUBMITTED"
	StatusUnderReviewByCoordinator FolderStatus = "UNDER_REVIEW_BY_COORDINATOR"
	StatusApprovedCoordinator      FolderStatus = "APPROVED_COORDINATOR"
	StatusRejectedCoordinator      FolderStatus = "REJECTED_COORDINATOR"
	StatusUnderAudit               FolderStatus = "UNDER_AUDIT"
	StatusAuditCompleted           FolderStatus = "AUDIT_COMPLETED"
	StatusRejectedByConvener       FolderStatus = "REJECTED_BY_CONVENER"
	StatusSubmittedToHOD           FolderStatus = "SUBMITTED_TO_HOD"
	StatusUnderReviewByHOD         FolderStatus = "UNDER_REVIEW_BY_HOD"
	StatusApprovedByHOD            FolderStatus = "APPROVED_BY_HOD"
	StatusRejectedByHOD            FolderStatus = "REJECTED_BY_HOD"
	StatusCompleted                FolderStatus = "COMPLETED"
)

// FolderAction enumerates the operations that drive status transitions.
type FolderAction string

const (
	ActionSubmit        FolderAction = "SUBMIT"
	ActionStartReview   FolderAction = "START_REVIEW"
	ActionApprove       FolderAction = "APPROVE"
	ActionReject        FolderAction = "REJECT"
	ActionAssignAudit   FolderAction = "ASSIGN_AUDIT"
	ActionCompleteAudit FolderAction = "COMPLETE_AUDIT"
	ActionComplete      FolderAction = "COMPLETE"
)

// SectionContents maps section keys (e.g. COURSE_OUTLINE or
// ASSIGNMENT_3_QUESTION_PAPER) to opaque JSON blobs. The lifecycle core
// never interprets blob contents.
type SectionContents map[string]json.RawMessage

// Value marshals sections to JSON for persistence.
func (s SectionContents) Value() (driver.Value, error) {
	if s == nil {
		s = SectionContents{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal folder sections: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the section map.
func (s *SectionContents) Scan(value interface{}) error {
	if value == nil {
		*s = SectionContents{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SectionContents", value)
	}
	if len(data) == 0 {
		*s = SectionContents{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal folder sections: %w", err)
	}
	return nil
}

// Folder is the reviewable document unit assembled by a faculty member
// and reviewed by the coordinator / audit / convener / HOD chain.
type Folder struct {
	ID          string `db:"id" json:"id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Section     string `db:"section" json:"section"`
	FacultyID   string `db:"faculty_id" json:"faculty_id"`
	Term        string `db:"term" json:"term"`
	Department  string `db:"department" json:"department"`

	Status      FolderStatus    `db:"status" json:"status"`
	Sections    SectionContents `db:"sections" json:"sections"`
	SubmittedAt *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`

	// FirstActivityCompleted flips to true when the first submission
	// cycle (after midterm) is approved by the HOD. It never resets.
	FirstActivityCompleted bool `db:"first_activity_completed" json:"first_activity_completed"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewContext describes who is looking at a folder and in what mode.
// Derived per request, never persisted.
type ReviewContext struct {
	UserID string
	Role   UserRole

	// IsReviewMode marks a reviewing pass-through (read-oriented) as
	// opposed to an editing pass over one's own pending folder.
	IsReviewMode bool

	// CanEditForFinalSubmission is derived from the FINAL_SUBMISSION
	// deadline check and supplied to the permission evaluator as an
	// opaque input.
	CanEditForFinalSubmission bool
}

// IsAuditMemberReview reports whether the access is an audit pass.
func (c ReviewContext) IsAuditMemberReview() bool {
	return c.Role == RoleAuditMember
}

// IsConvenerReview reports whether the access is a convener pass.
func (c ReviewContext) IsConvenerReview() bool {
	return c.Role == RoleConvener && c.IsReviewMode
}

// IsHODReview reports whether the access is an HOD pass.
func (c ReviewContext) IsHODReview() bool {
	return c.Role == RoleHOD && c.IsReviewMode
}

// FolderFilter constrains folder listing queries.
type FolderFilter struct {
	FacultyID  string
	Status     []FolderStatus
	Term       string
	Department string
	Limit      int
	Offset     int
}

// StatusCount is one row of the dashboard status breakdown.
type StatusCount struct {
	Status FolderStatus `db:"status" json:"status"`
	Count  int          `db:"count" json:"count"`
}
