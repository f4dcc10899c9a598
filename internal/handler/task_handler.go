package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/response"
)

type taskService interface {
	List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, ownerID string, req models.CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, ownerID, taskID string, req models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

type taskExportService interface {
	Tasks(ctx context.Context, ownerID, format string) ([]byte, string, error)
}

// TaskHandler wires HTTP endpoints to the task service. All routes sit
// behind the session middleware, so a resolved user is always present.
type TaskHandler struct {
	service taskService
	exports taskExportService
}

// NewTaskHandler creates a new handler.
func NewTaskHandler(svc taskService, exports taskExportService) *TaskHandler {
	return &TaskHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List tasks
// @Description Returns the caller's tasks with filtering, sorting and paging
// @Tags Tasks
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param is_completed query bool false "Filter by completion"
// @Param sort_by query string false "Sort key (created_at, updated_at, title, is_completed)"
// @Param sort_order query string false "asc or desc"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /tasks/ [get]
func (h *TaskHandler) List(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	filter, err := parseTaskFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	tasks, err := h.service.List(c.Request.Context(), user.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tasks)
}

// Create godoc
// @Summary Create a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body models.CreateTaskRequest true "Task payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /tasks/ [post]
func (h *TaskHandler) Create(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}

	task, err := h.service.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, task)
}

// Update godoc
// @Summary Update a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task id"
// @Param payload body models.UpdateTaskRequest true "Task patch"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}

	task, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, task)
}

// Delete godoc
// @Summary Delete a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "task deleted successfully")
}

// Export godoc
// @Summary Export tasks
// @Description Download the caller's tasks as CSV or PDF
// @Tags Tasks
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /tasks/export [get]
func (h *TaskHandler) Export(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.exports.Tasks(c.Request.Context(), user.ID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="tasks.`+format+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func parseTaskFilter(c *gin.Context) (models.TaskFilter, error) {
	filter := models.TaskFilter{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "skip must be an integer")
		}
		filter.Skip = skip
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer")
		}
		filter.Limit = limit
	}
	if raw := c.Query("is_completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "is_completed must be a boolean")
		}
		filter.IsCompleted = &completed
	}

	return filter, nil
}
