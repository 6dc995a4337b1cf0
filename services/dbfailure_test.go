package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lazypandaa/connect/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB подменяет ORM на postgres поверх sqlmock
func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	database, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	previous := db.ORM
	db.ORM = database
	t.Cleanup(func() {
		db.ORM = previous
		_ = sqlDB.Close()
	})
	return mock
}

func TestLoginDatabaseFailureIsNotInvalidCredentials(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection refused"))

	_, _, err := NewUserService().Login(context.Background(), "a@example.com", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRequestDatabaseFailure(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "friends"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := NewFriendService().SendRequest(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}
