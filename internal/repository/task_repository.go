package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
)

// allowedTaskSorts enumerates the sort keys the listing endpoint accepts.
// The sort column is interpolated into SQL, so only values from this set
// may ever reach the query builder.
var allowedTaskSorts = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"title":        "title",
	"is_completed": "is_completed",
}

// TaskRepository provides database access to tasks. Every query is scoped
// by owner so that a task belonging to another user is indistinguishable
// from a task that does not exist.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task for the owner already set on the model.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, title, description, is_completed, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, task.ID, task.Title, task.Description, task.IsCompleted, task.OwnerID, task.CreatedAt, task.UpdatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's tasks honoring filter, sort and paging.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.IsCompleted != nil {
		conditions = append(conditions, fmt.Sprintf("is_completed = $%d", len(args)+1))
		args = append(args, *filter.IsCompleted)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedTaskSorts[sortBy]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown sort key %q", sortBy))
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder == "" {
		sortOrder = "DESC"
	}
	if sortOrder != "ASC" && sortOrder != "DESC" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown sort order %q", filter.SortOrder))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf(
		"SELECT id, title, description, is_completed, owner_id, created_at, updated_at FROM tasks WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		strings.Join(conditions, " AND "), column, sortOrder, limit, skip,
	)

	tasks := []models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindByOwner returns a single task owned by ownerID.
func (r *TaskRepository) FindByOwner(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	const query = `SELECT id, title, description, is_completed, owner_id, created_at, updated_at FROM tasks WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, taskID, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Update persists changes to a task. sql.ErrNoRows is returned when the
// task is absent or owned by someone else.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = $3, description = $4, is_completed = $5, updated_at = $6 WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, task.ID, task.OwnerID, task.Title, task.Description, task.IsCompleted, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a task owned by ownerID. sql.ErrNoRows is returned when
// nothing matched.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
