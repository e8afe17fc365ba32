package models

import "time"

// FolderStatusHistory is an append-only record of folder status changes.
type FolderStatusHistory struct {
	ID        string       `db:"id" json:"id"`
	FolderID  string       `db:"folder_id" json:"folder_id"`
	Status    FolderStatus `db:"status" json:"status"`
	ChangedBy string       `db:"changed_by" json:"changed_by"`
	Notes     string       `db:"notes" json:"notes"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
