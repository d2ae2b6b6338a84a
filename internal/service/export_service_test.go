package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

type trashListerStub struct {
	entries []models.TrashEntry
}

func (s *trashListerStub) List(ctx context.Context, ownerID string, filter models.TrashFilter, actor *models.JWTClaims) ([]models.TrashEntry, error) {
	return s.entries, nil
}

func TestTrashReportCSV(t *testing.T) {
	deletedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &trashListerStub{entries: []models.TrashEntry{
		{Kind: models.KindFile, ID: "file-1", Name: "essay.pdf", DeletedBy: "stu-1", DeletedAt: deletedAt, OriginalPath: "A / B", SizeBytes: 2048},
	}}
	svc := NewExportService(lister, nil)

	report, err := svc.TrashReport(context.Background(), "", "csv", models.TrashFilter{}, adminClaims("adm-1"))
	require.NoError(t, err)
	require.Equal(t, "text/csv", report.ContentType)
	require.Contains(t, report.Filename, ".csv")
	require.True(t, bytes.Contains(report.Content, []byte("essay.pdf")))
	require.True(t, bytes.Contains(report.Content, []byte("A / B")))
}

func TestTrashReportPDF(t *testing.T) {
	svc := NewExportService(&trashListerStub{}, nil)

	report, err := svc.TrashReport(context.Background(), "", "pdf", models.TrashFilter{}, adminClaims("adm-1"))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", report.ContentType)
	require.True(t, bytes.HasPrefix(report.Content, []byte("%PDF")))
}

func TestTrashReportForbiddenForStudents(t *testing.T) {
	svc := NewExportService(&trashListerStub{}, nil)

	_, err := svc.TrashReport(context.Background(), "", "csv", models.TrashFilter{}, studentClaims("stu-1"))
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTrashReportUnknownFormat(t *testing.T) {
	svc := NewExportService(&trashListerStub{}, nil)

	_, err := svc.TrashReport(context.Background(), "", "xlsx", models.TrashFilter{}, adminClaims("adm-1"))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
