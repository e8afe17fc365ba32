package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// DeadlineRepository persists submission deadlines.
type DeadlineRepository struct {
	db *sqlx.DB
}

// NewDeadlineRepository constructs the repository.
func NewDeadlineRepository(db *sqlx.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

// Upsert replaces the deadline for a (type, term, department) key.
func (r *DeadlineRepository) Upsert(ctx context.Context, deadline *models.FolderDeadline) error {
	if deadline.ID == "" {
		deadline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if deadline.CreatedAt.IsZero() {
		deadline.CreatedAt = now
	}
	deadline.UpdatedAt = now
	const query = `INSERT INTO folder_deadlines (id, type, term, department, due_at, set_by, notes, created_at, updated_at)
VALUES (:id, :type, :term, :department, :due_at, :set_by, :notes, :created_at, :updated_at)
ON CONFLICT (type, term, COALESCE(department, ''))
DO UPDATE SET due_at = EXCLUDED.due_at, set_by = EXCLUDED.set_by, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, deadline); err != nil {
		return fmt.Errorf("upsert deadline: %w", err)
	}
	return nil
}

// FindByTypeAndTerm resolves the effective deadline for a department:
// the department-scoped row wins, the term-wide row is the fallback.
func (r *DeadlineRepository) FindByTypeAndTerm(ctx context.Context, deadlineType models.DeadlineType, term, department string) (*models.FolderDeadline, error) {
	const query = `SELECT id, type, term, department, due_at, set_by, notes, created_at, updated_at
FROM folder_deadlines
WHERE type = $1 AND term = $2 AND (department = $3 OR department IS NULL)
ORDER BY department NULLS LAST
LIMIT 1`
	var deadline models.FolderDeadline
	if err := r.db.GetContext(ctx, &deadline, query, deadlineType, term, department); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find deadline: %w", err)
	}
	return &deadline, nil
}

// List returns all deadlines of a term.
func (r *DeadlineRepository) List(ctx context.Context, term string) ([]models.FolderDeadline, error) {
	const query = `SELECT id, type, term, department, due_at, set_by, notes, created_at, updated_at
FROM folder_deadlines WHERE term = $1 ORDER BY due_at ASC`
	var deadlines []models.FolderDeadline
	if err := r.db.SelectContext(ctx, &deadlines, query, term); err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	return deadlines, nil
}
