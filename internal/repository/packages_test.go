package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

// MySQL reports changed rows, not matched rows, so re-applying the same
// status and location affects 0 rows. That must not surface as an error.
func TestUpdateStatus_noChangeIsNotAnError(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewPackagesRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE packages`).
		WithArgs("in_transit", nil, "pkg-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), nil, "pkg-1", model.StatusInTransit, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_passesNewLocation(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewPackagesRepository(dbx)

	loc := "Kinshasa"
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE packages`).
		WithArgs("arrived_africa", loc, "pkg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), nil, "pkg-1", model.StatusArrivedAfrica, &loc)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
