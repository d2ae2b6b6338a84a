package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/service"
	appErrors "github.com/edustack/portal-api/pkg/errors"
	"github.com/edustack/portal-api/pkg/response"
)

// ConfirmEmptyTrashHeader gates the irreversible empty-trash operation at
// the transport boundary.
const ConfirmEmptyTrashHeader = "X-Confirm-Empty-Trash"

const confirmEmptyTrashValue = "permanently delete"

type trashService interface {
	List(ctx context.Context, ownerID string, filter models.TrashFilter, actor *models.JWTClaims) ([]models.TrashEntry, error)
	Restore(ctx context.Context, id string, kind models.ItemKind, actor *models.JWTClaims) error
	RestoreFolderWithContents(ctx context.Context, folderID string, actor *models.JWTClaims) (int, error)
	Purge(ctx context.Context, id string, kind models.ItemKind, actor *models.JWTClaims) (int, error)
	EmptyTrash(ctx context.Context, ownerID string, actor *models.JWTClaims) (int, error)
}

type trashExportService interface {
	TrashReport(ctx context.Context, ownerID, format string, filter models.TrashFilter, actor *models.JWTClaims) (*service.ExportFile, error)
}

// TrashHandler manages trash HTTP endpoints.
type TrashHandler struct {
	trash   trashService
	exports trashExportService
}

// NewTrashHandler constructs the handler.
func NewTrashHandler(trash trashService, exports trashExportService) *TrashHandler {
	return &TrashHandler{trash: trash, exports: exports}
}

func trashFilterFromQuery(c *gin.Context) models.TrashFilter {
	filter := models.TrashFilter{
		NameContains: strings.TrimSpace(c.Query("q")),
	}
	if kind := strings.ToUpper(strings.TrimSpace(c.Query("kind"))); kind != "" {
		filter.Kind = models.ItemKind(kind)
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}

// List godoc
// @Summary List trashed items, most recently deleted first
// @Tags Trash
// @Produce json
// @Param q query string false "Name contains"
// @Param kind query string false "FOLDER or FILE"
// @Param ownerId query string false "Owner id (staff only)"
// @Success 200 {object} response.Envelope
// @Router /drive/trash [get]
func (h *TrashHandler) List(c *gin.Context) {
	filter := trashFilterFromQuery(c)
	if filter.Kind != "" && !filter.Kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown item kind"))
		return
	}
	entries, err := h.trash.List(c.Request.Context(), c.Query("ownerId"), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Restore godoc
// @Summary Restore a single trashed item to its original location
// @Tags Trash
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.RestoreRequest true "Item kind"
// @Success 204
// @Router /drive/trash/{id}/restore [post]
func (h *TrashHandler) Restore(c *gin.Context) {
	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "item kind is required"))
		return
	}
	if err := h.trash.Restore(c.Request.Context(), c.Param("id"), req.Kind, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RestoreFolder godoc
// @Summary Restore a trashed folder together with its trashed contents
// @Tags Trash
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /drive/trash/folders/{id}/restore [post]
func (h *TrashHandler) RestoreFolder(c *gin.Context) {
	restored, err := h.trash.RestoreFolderWithContents(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RestoreCountResponse{Restored: restored}, nil)
}

// Purge godoc
// @Summary Permanently delete a single trashed item (staff only)
// @Tags Trash
// @Produce json
// @Param id path string true "Item ID"
// @Param kind query string true "FOLDER or FILE"
// @Success 200 {object} response.Envelope
// @Router /drive/trash/{id} [delete]
func (h *TrashHandler) Purge(c *gin.Context) {
	kind := models.ItemKind(strings.ToUpper(strings.TrimSpace(c.Query("kind"))))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "item kind is required"))
		return
	}
	purged, err := h.trash.Purge(c.Request.Context(), c.Param("id"), kind, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PurgeResponse{Purged: purged}, nil)
}

// Empty godoc
// @Summary Permanently delete everything in the trash
// @Description Irreversible. Requires the X-Confirm-Empty-Trash header set to "permanently delete".
// @Tags Trash
// @Produce json
// @Param ownerId query string false "Owner id (staff only)"
// @Success 200 {object} response.Envelope
// @Router /drive/trash [delete]
func (h *TrashHandler) Empty(c *gin.Context) {
	if c.GetHeader(ConfirmEmptyTrashHeader) != confirmEmptyTrashValue {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("confirmation required: set %s", ConfirmEmptyTrashHeader)))
		return
	}
	purged, err := h.trash.EmptyTrash(c.Request.Context(), c.Query("ownerId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PurgeResponse{Purged: purged}, nil)
}

// Export godoc
// @Summary Export the trash listing as a CSV or PDF report
// @Tags Trash
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param ownerId query string false "Owner id"
// @Success 200 {file} binary
// @Router /drive/trash/export [get]
func (h *TrashHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports not configured"))
		return
	}
	filter := trashFilterFromQuery(c)
	if filter.Kind != "" && !filter.Kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown item kind"))
		return
	}
	report, err := h.exports.TrashReport(c.Request.Context(), c.Query("ownerId"), c.Query("format"), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", report.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
