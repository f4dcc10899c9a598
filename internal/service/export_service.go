package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/export"
)

type exportTaskRepository interface {
	ListByOwner(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)
}

// ExportService renders a user's task list into downloadable documents.
type ExportService struct {
	repo   exportTaskRepository
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(repo exportTaskRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repo: repo, logger: logger}
}

var exportHeaders = []string{"title", "description", "completed", "created_at"}

// Tasks exports the owner's full task list in the requested format and
// returns the document bytes along with its content type.
func (s *ExportService) Tasks(ctx context.Context, ownerID, format string) ([]byte, string, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID, models.TaskFilter{})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tasks for export")
	}

	dataset := export.Dataset{
		Title:   "Tasks",
		Headers: exportHeaders,
		Rows:    make([]map[string]string, 0, len(tasks)),
	}
	for _, task := range tasks {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"title":       task.Title,
			"description": task.Description,
			"completed":   strconv.FormatBool(task.IsCompleted),
			"created_at":  task.CreatedAt.Format(time.RFC3339),
		})
	}

	switch format {
	case "csv":
		payload, err := export.RenderCSV(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.RenderPDF(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
