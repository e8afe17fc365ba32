package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// AuditRepository persists audit-member assignments and verdicts.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an assignment row.
func (r *AuditRepository) Create(ctx context.Context, assignment *models.AuditAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	if assignment.Decision == "" {
		assignment.Decision = models.AuditDecisionPending
	}
	const query = `INSERT INTO audit_assignments (id, folder_id, auditor_id, assigned_by, assigned_at, decision, remarks, submitted_at)
VALUES (:id, :folder_id, :auditor_id, :assigned_by, :assigned_at, :decision, :remarks, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create audit assignment: %w", err)
	}
	return nil
}

// ListByFolder returns the audit roster for one folder.
func (r *AuditRepository) ListByFolder(ctx context.Context, folderID string) ([]models.AuditAssignment, error) {
	const query = `SELECT id, folder_id, auditor_id, assigned_by, assigned_at, decision, remarks, submitted_at
FROM audit_assignments WHERE folder_id = $1 ORDER BY assigned_at ASC`
	var assignments []models.AuditAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, folderID); err != nil {
		return nil, fmt.Errorf("list audit assignments: %w", err)
	}
	return assignments, nil
}

// FindByFolderAndAuditor returns one auditor's assignment on a folder.
func (r *AuditRepository) FindByFolderAndAuditor(ctx context.Context, folderID, auditorID string) (*models.AuditAssignment, error) {
	const query = `SELECT id, folder_id, auditor_id, assigned_by, assigned_at, decision, remarks, submitted_at
FROM audit_assignments WHERE folder_id = $1 AND auditor_id = $2`
	var assignment models.AuditAssignment
	if err := r.db.GetContext(ctx, &assignment, query, folderID, auditorID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// UpdateDecision records a verdict on an assignment.
func (r *AuditRepository) UpdateDecision(ctx context.Context, id string, decision models.AuditDecision, remarks string, submittedAt time.Time) error {
	const query = `UPDATE audit_assignments SET decision = $2, remarks = $3, submitted_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, decision, remarks, submittedAt); err != nil {
		return fmt.Errorf("update audit decision: %w", err)
	}
	return nil
}

// CountPending counts assignments still awaiting a verdict.
func (r *AuditRepository) CountPending(ctx context.Context, folderID string) (int, error) {
	const query = `SELECT COUNT(*) FROM audit_assignments WHERE folder_id = $1 AND decision = 'PENDING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, folderID); err != nil {
		return 0, fmt.Errorf("count pending audits: %w", err)
	}
	return count, nil
}
