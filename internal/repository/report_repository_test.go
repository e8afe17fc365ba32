package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
)

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(`INSERT INTO report_jobs`).WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.ReportJob{
		Params:    models.ReportJobParams{FolderID: "folder-1"},
		CreatedBy: "fac-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ReportStatusQueued, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", []byte(`{"folderId":"folder-1"}`), models.ReportStatusFinished, "/api/v1/reports/download/tok", "fac-1", time.Now(), time.Now(), nil)
	mock.ExpectQuery(`SELECT id, params, status, result_path, created_by, created_at, finished_at, error_message\s+FROM report_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, "folder-1", job.Params.FolderID)
	require.Equal(t, models.ReportStatusFinished, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	status := models.ReportStatusFailed
	message := "render timed out"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, error_message = $2 WHERE id = $3")).
		WithArgs(status, message, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{Status: &status, ErrorMessage: &message})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", []byte(`{"folderId":"folder-1"}`), models.ReportStatusQueued, nil, "fac-1", time.Now(), nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
