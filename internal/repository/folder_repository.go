package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// FolderRepository persists course folders. Section contents live in a
// JSONB column keyed by section name; UpdateSection patches one key so
// concurrent autosave sessions on different sections never clobber each
// other.
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository constructs the repository.
func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

const folderColumns = `id, course_code, course_title, section, faculty_id, term, department, status, sections, submitted_at, first_activity_completed, created_at, updated_at`

// Create inserts a folder row with generated defaults.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	if folder.Status == "" {
		folder.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	folder.UpdatedAt = now
	const query = `INSERT INTO course_folders (id, course_code, course_title, section, faculty_id, term, department, status, sections, submitted_at, first_activity_completed, created_at, updated_at)
VALUES (:id, :course_code, :course_title, :section, :faculty_id, :term, :department, :status, :sections, :submitted_at, :first_activity_completed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// FindByID returns one folder row.
func (r *FolderRepository) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_folders WHERE id = $1`, folderColumns)
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, err
	}
	return &folder, nil
}

// List returns folders matching the filter plus the unpaginated total.
func (r *FolderRepository) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, int, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if filter.FacultyID != "" {
		where = append(where, fmt.Sprintf("faculty_id = $%d", argPos))
		args = append(args, filter.FacultyID)
		argPos++
	}
	if filter.Term != "" {
		where = append(where, fmt.Sprintf("term = $%d", argPos))
		args = append(args, filter.Term)
		argPos++
	}
	if filter.Department != "" {
		where = append(where, fmt.Sprintf("department = $%d", argPos))
		args = append(args, filter.Department)
		argPos++
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, 0, len(filter.Status))
		for _, status := range filter.Status {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argPos))
			args = append(args, status)
			argPos++
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM course_folders" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count folders: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM course_folders%s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", folderColumns, clause, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	var folders []models.Folder
	if err := r.db.SelectContext(ctx, &folders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list folders: %w", err)
	}
	return folders, total, nil
}

// UpdateSection patches one section key inside the JSONB contents.
func (r *FolderRepository) UpdateSection(ctx context.Context, folderID, section string, content json.RawMessage) error {
	const query = `UPDATE course_folders
SET sections = jsonb_set(COALESCE(sections, '{}'::jsonb), $2, $3::jsonb, true), updated_at = $4
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, folderID, fmt.Sprintf("{%s}", section), []byte(content), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update folder section: %w", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("update folder section: folder %s not found", folderID)
	}
	return nil
}

// UpdateStatus writes the status, submission timestamp and first-cycle
// flag in one statement.
func (r *FolderRepository) UpdateStatus(ctx context.Context, folderID string, status models.FolderStatus, submittedAt *time.Time, firstActivityCompleted bool) error {
	const query = `UPDATE course_folders
SET status = $2, submitted_at = $3, first_activity_completed = $4, updated_at = $5
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, folderID, status, submittedAt, firstActivityCompleted, time.Now().UTC()); err != nil {
		return fmt.Errorf("update folder status: %w", err)
	}
	return nil
}

// CountByStatus aggregates folder counts per status for the dashboard.
func (r *FolderRepository) CountByStatus(ctx context.Context, filter models.FolderFilter) ([]models.StatusCount, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	argPos := 1

	if filter.FacultyID != "" {
		where = append(where, fmt.Sprintf("faculty_id = $%d", argPos))
		args = append(args, filter.FacultyID)
		argPos++
	}
	if filter.Term != "" {
		where = append(where, fmt.Sprintf("term = $%d", argPos))
		args = append(args, filter.Term)
		argPos++
	}
	if filter.Department != "" {
		where = append(where, fmt.Sprintf("department = $%d", argPos))
		args = append(args, filter.Department)
		argPos++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	query := "SELECT status, COUNT(*) AS count FROM course_folders" + clause + " GROUP BY status ORDER BY status"

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count folders by status: %w", err)
	}
	return counts, nil
}
