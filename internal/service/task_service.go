package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
)

type taskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	ListByOwner(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)
	FindByOwner(ctx context.Context, ownerID, taskID string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, ownerID, taskID string) error
}

// TaskService provides task use cases. The owner id always comes from the
// session validator, never from the request body, so a caller can only
// ever touch their own tasks. A task owned by someone else yields
// NotFound rather than Forbidden so its existence is not confirmed.
type TaskService struct {
	repo      taskRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(repo taskRepository, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaskService{repo: repo, validator: validate, logger: logger}
}

// List returns the owner's tasks.
func (s *TaskService) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

// Create adds a task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		OwnerID:     ownerID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Update applies a partial update to a task owned by ownerID.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.repo.FindByOwner(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Delete removes a task owned by ownerID.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := s.repo.Delete(ctx, ownerID, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}
