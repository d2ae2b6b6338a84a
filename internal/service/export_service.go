package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
	"github.com/edustack/portal-api/pkg/export"
)

type trashLister interface {
	List(ctx context.Context, ownerID string, filter models.TrashFilter, actor *models.JWTClaims) ([]models.TrashEntry, error)
}

// ExportFile bundles rendered report bytes with transport metadata.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders the trash listing as downloadable CSV or PDF
// reports for administrative review.
type ExportService struct {
	trash  trashLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(trash trashLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		trash:  trash,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var trashReportHeaders = []string{"Kind", "Name", "Original Location", "Deleted By", "Deleted At", "Expires At", "Size (bytes)"}

// TrashReport renders the caller-scoped trash listing in the requested
// format ("csv" or "pdf").
func (s *ExportService) TrashReport(ctx context.Context, ownerID, format string, filter models.TrashFilter, actor *models.JWTClaims) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	entries, err := s.trash.List(ctx, ownerID, filter, actor)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: trashReportHeaders, Rows: make([]map[string]string, 0, len(entries))}
	for _, entry := range entries {
		expires := ""
		if entry.ExpiresAt != nil {
			expires = entry.ExpiresAt.Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Kind":              string(entry.Kind),
			"Name":              entry.Name,
			"Original Location": entry.OriginalPath,
			"Deleted By":        entry.DeletedBy,
			"Deleted At":        entry.DeletedAt.Format(time.RFC3339),
			"Expires At":        expires,
			"Size (bytes)":      fmt.Sprintf("%d", entry.SizeBytes),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch strings.ToLower(format) {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("trash-report-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "Trash Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("trash-report-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
