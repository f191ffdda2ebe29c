package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/stitchline/atelier-api/internal/models"
)

func newRosterRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func rosterRows(userIDs ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "position", "active", "created_at"})
	for i, id := range userIDs {
		rows.AddRow("row-"+id, id, "Head "+id, i, true, time.Now())
	}
	return rows
}

func TestRosterRepositoryAddHead(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO production_heads")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	head := &models.ProductionHead{UserID: "u1", FullName: "Priya N"}
	require.NoError(t, repo.AddHead(context.Background(), head))
	require.NotEmpty(t, head.ID)
	require.True(t, head.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryNextHeadAdvancesCursor(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position FROM assignment_cursor")).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM production_heads")).
		WillReturnRows(rosterRows("u1", "u2", "u3"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_cursor SET position")).
		WithArgs(2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	head, err := repo.NextHead(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u2", head.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryNextHeadWraps(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectBegin()
	// The cursor survived a roster shrink and points past the end.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position FROM assignment_cursor")).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM production_heads")).
		WillReturnRows(rosterRows("u1", "u2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_cursor SET position")).
		WithArgs(0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	head, err := repo.NextHead(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u2", head.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryNextHeadEmptyRoster(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position FROM assignment_cursor")).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM production_heads")).
		WillReturnRows(rosterRows())
	mock.ExpectRollback()

	_, err := repo.NextHead(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
