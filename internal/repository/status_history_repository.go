package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// StatusHistoryRepository appends and reads folder status transitions.
type StatusHistoryRepository struct {
	db *sqlx.DB
}

// NewStatusHistoryRepository constructs the repository.
func NewStatusHistoryRepository(db *sqlx.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

// Record appends one transition row.
func (r *StatusHistoryRepository) Record(ctx context.Context, entry *models.FolderStatusHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO folder_status_history (id, folder_id, status, changed_by, notes, created_at)
VALUES (:id, :folder_id, :status, :changed_by, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("record status history: %w", err)
	}
	return nil
}

// ListByFolder returns a folder's transitions, oldest first.
func (r *StatusHistoryRepository) ListByFolder(ctx context.Context, folderID string) ([]models.FolderStatusHistory, error) {
	const query = `SELECT id, folder_id, status, changed_by, notes, created_at
FROM folder_status_history WHERE folder_id = $1 ORDER BY created_at ASC`
	var entries []models.FolderStatusHistory
	if err := r.db.SelectContext(ctx, &entries, query, folderID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}
