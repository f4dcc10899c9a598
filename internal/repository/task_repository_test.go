package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
)

func TestTaskCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(1, 1))

	task := &models.Task{Title: "buy milk", OwnerID: "u1"}
	err := repo.Create(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListByOwnerDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "is_completed", "owner_id", "created_at", "updated_at"}).
		AddRow("t1", "buy milk", "", false, "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, is_completed, owner_id, created_at, updated_at FROM tasks WHERE owner_id = $1 ORDER BY created_at DESC LIMIT 100 OFFSET 0")).
		WithArgs("u1").
		WillReturnRows(rows)

	tasks, err := repo.ListByOwner(context.Background(), "u1", models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListByOwnerCompletedFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	completed := true
	rows := sqlmock.NewRows([]string{"id", "title", "description", "is_completed", "owner_id", "created_at", "updated_at"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, is_completed, owner_id, created_at, updated_at FROM tasks WHERE owner_id = $1 AND is_completed = $2 ORDER BY is_completed ASC LIMIT 10 OFFSET 5")).
		WithArgs("u1", true).
		WillReturnRows(rows)

	_, err := repo.ListByOwner(context.Background(), "u1", models.TaskFilter{
		Skip:        5,
		Limit:       10,
		IsCompleted: &completed,
		SortBy:      "is_completed",
		SortOrder:   "asc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRejectsUnknownSortKey(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	_, err := repo.ListByOwner(context.Background(), "u1", models.TaskFilter{SortBy: "owner_id; DROP TABLE tasks"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTaskListRejectsUnknownSortOrder(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	_, err := repo.ListByOwner(context.Background(), "u1", models.TaskFilter{SortOrder: "sideways"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTaskUpdateForeignOwnerNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Task{ID: "t1", OwnerID: "someone-else", Title: "x"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskDeleteScopedByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND owner_id = $2")).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskDeleteMissingNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("DELETE FROM tasks").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
