package models

import "time"

// FeedbackChannel identifies the reviewer role-track a feedback entry
// belongs to. The two channels are independent stores with one live
// entry per (folder, section, channel).
type FeedbackChannel string

const (
	ChannelCoordinator FeedbackChannel = "COORDINATOR"
	ChannelAuditMember FeedbackChannel = "AUDIT_MEMBER"
)

// FeedbackEntry is one reviewer annotation on a folder section.
// Notes may be empty: saving an empty string intentionally clears
// previously written feedback.
type FeedbackEntry struct {
	FolderID string          `db:"folder_id" json:"folder_id"`
	Section  string          `db:"section" json:"section"`
	Channel  FeedbackChannel `db:"channel" json:"channel"`
	Notes    string          `db:"notes" json:"notes"`
	SavedBy  string          `db:"saved_by" json:"saved_by"`
	SavedAt  time.Time       `db:"saved_at" json:"saved_at"`
}
