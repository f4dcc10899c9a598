package models

import "time"

// Task is a user-owned todo item.
type Task struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TaskFilter captures listing criteria. SortBy must be one of the
// enumerated sort keys; unknown values are rejected rather than silently
// falling back to a default.
type TaskFilter struct {
	Skip        int
	Limit       int
	IsCompleted *bool
	SortBy      string
	SortOrder   string
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	IsCompleted bool   `json:"is_completed"`
}

// UpdateTaskRequest is the payload for updating a task. Nil fields are
// left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}
