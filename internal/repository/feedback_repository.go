package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// FeedbackRepository persists reviewer annotations, one live row per
// (folder, section, channel).
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Upsert overwrites the entry for the (folder, section, channel) key.
func (r *FeedbackRepository) Upsert(ctx context.Context, entry *models.FeedbackEntry) error {
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	const query = `INSERT INTO folder_feedback (folder_id, section, channel, notes, saved_by, saved_at)
VALUES (:folder_id, :section, :channel, :notes, :saved_by, :saved_at)
ON CONFLICT (folder_id, section, channel)
DO UPDATE SET notes = EXCLUDED.notes, saved_by = EXCLUDED.saved_by, saved_at = EXCLUDED.saved_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// ListByFolder returns every entry for one folder and channel.
func (r *FeedbackRepository) ListByFolder(ctx context.Context, folderID string, channel models.FeedbackChannel) ([]models.FeedbackEntry, error) {
	const query = `SELECT folder_id, section, channel, notes, saved_by, saved_at
FROM folder_feedback WHERE folder_id = $1 AND channel = $2 ORDER BY section`
	var entries []models.FeedbackEntry
	if err := r.db.SelectContext(ctx, &entries, query, folderID, channel); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return entries, nil
}
