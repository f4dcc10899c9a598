package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/task-manager-api/internal/models"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
)

func TestExportTasksCSV(t *testing.T) {
	repo := newMockTaskRepo()
	repo.tasks["t1"] = &models.Task{
		ID:        "t1",
		Title:     "buy milk",
		OwnerID:   "alice",
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewExportService(repo, zap.NewNop())

	payload, contentType, err := svc.Tasks(context.Background(), "alice", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "title,description,completed,created_at"))
	assert.Contains(t, body, "buy milk")
	assert.Contains(t, body, "2024-01-01T12:00:00Z")
}

func TestExportTasksPDF(t *testing.T) {
	repo := newMockTaskRepo()
	repo.tasks["t1"] = &models.Task{ID: "t1", Title: "buy milk", OwnerID: "alice"}
	svc := NewExportService(repo, zap.NewNop())

	payload, contentType, err := svc.Tasks(context.Background(), "alice", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportTasksUnknownFormat(t *testing.T) {
	svc := NewExportService(newMockTaskRepo(), zap.NewNop())

	_, _, err := svc.Tasks(context.Background(), "alice", "xlsx")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportTasksOnlyOwnersRows(t *testing.T) {
	repo := newMockTaskRepo()
	repo.tasks["t1"] = &models.Task{ID: "t1", Title: "alice task", OwnerID: "alice"}
	repo.tasks["t2"] = &models.Task{ID: "t2", Title: "bob task", OwnerID: "bob"}
	svc := NewExportService(repo, zap.NewNop())

	payload, _, err := svc.Tasks(context.Background(), "alice", "csv")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "alice task")
	assert.NotContains(t, string(payload), "bob task")
}
