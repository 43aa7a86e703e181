package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-scheduler/domain/model"
)

func TestUserRepository_GetById(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	updatedAt := createdAt

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE id = $1`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_name", "password", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice", "hashed", createdAt, updatedAt))

	res, err := repo.GetById(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.User{
		ID:        1,
		Name:      "Alice",
		UserName:  "alice",
		Password:  "hashed",
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUserName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE user_name = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_name", "password", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice", "hashed", createdAt, createdAt))

	res, err := repo.GetByUserName(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", res.UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (name, user_name, password, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW())`)).
		WithArgs("Alice", "alice", "hashed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.CreateUser(context.Background(), model.User{
		Name:     "Alice",
		UserName: "alice",
		Password: "hashed",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetById_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE id = $1`)).
		WillReturnError(fmt.Errorf("query error"))

	res, err := repo.GetById(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, model.User{}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}
