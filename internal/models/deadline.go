package models

import "time"

// DeadlineType distinguishes the two submission windows of a term.
type DeadlineType string

const (
	DeadlineFirstSubmission DeadlineType = "FIRST_SUBMISSION"
	DeadlineFinalSubmission DeadlineType = "FINAL_SUBMISSION"
)

// FolderDeadline is a submission deadline scoped to a term and
// optionally narrowed to a department.
type FolderDeadline struct {
	ID         string       `db:"id" json:"id"`
	Type       DeadlineType `db:"type" json:"type"`
	Term       string       `db:"term" json:"term"`
	Department *string      `db:"department" json:"department,omitempty"`
	DueAt      time.Time    `db:"due_at" json:"due_at"`
	SetBy      string       `db:"set_by" json:"set_by"`
	Notes      string       `db:"notes" json:"notes"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// IsPassed reports whether the deadline lies in the past.
func (d FolderDeadline) IsPassed(now time.Time) bool {
	return now.After(d.DueAt)
}
