package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/qau-se/cfms-api/internal/models"
)

func newFeedbackRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeedbackRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec(`INSERT INTO folder_feedback .+ ON CONFLICT \(folder_id, section, channel\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.FeedbackEntry{
		FolderID: "folder-1",
		Section:  "COURSE_OUTLINE",
		Channel:  models.ChannelCoordinator,
		Notes:    "tighten the CLO mapping",
		SavedBy:  "coord-1",
	}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	require.False(t, entry.SavedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListByFolder(t *testing.T) {
	db, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	rows := sqlmock.NewRows([]string{"folder_id", "section", "channel", "notes", "saved_by", "saved_at"}).
		AddRow("folder-1", "COURSE_LOG", models.ChannelAuditMember, "missing week 9", "aud-1", time.Now()).
		AddRow("folder-1", "COURSE_OUTLINE", models.ChannelAuditMember, "", "aud-1", time.Now())
	mock.ExpectQuery(`SELECT folder_id, section, channel, notes, saved_by, saved_at\s+FROM folder_feedback WHERE folder_id = \$1 AND channel = \$2`).
		WithArgs("folder-1", models.ChannelAuditMember).
		WillReturnRows(rows)

	entries, err := repo.ListByFolder(context.Background(), "folder-1", models.ChannelAuditMember)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "missing week 9", entries[0].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}
