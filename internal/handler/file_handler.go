package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/service"
	appErrors "github.com/edustack/portal-api/pkg/errors"
	"github.com/edustack/portal-api/pkg/response"
)

type fileService interface {
	Upload(ctx context.Context, meta dto.CreateFileRequest, upload service.FileUpload, actor *models.JWTClaims) (*models.File, error)
	List(ctx context.Context, ownerID string, folderID *string, actor *models.JWTClaims) ([]models.File, error)
	Download(ctx context.Context, fileID string, actor *models.JWTClaims) (*service.FileDownload, error)
	UpdateMeta(ctx context.Context, fileID string, req dto.UpdateFileRequest, actor *models.JWTClaims) (*models.File, error)
}

type fileTrashService interface {
	DeleteFile(ctx context.Context, fileID string, actor *models.JWTClaims) error
}

// FileHandler manages file HTTP endpoints.
type FileHandler struct {
	files fileService
	trash fileTrashService
}

// NewFileHandler constructs the handler.
func NewFileHandler(files fileService, trash fileTrashService) *FileHandler {
	return &FileHandler{files: files, trash: trash}
}

// Upload godoc
// @Summary Upload a file
// @Tags Drive
// @Accept multipart/form-data
// @Produce json
// @Param name formData string false "Display name (defaults to filename)"
// @Param folderId formData string false "Target folder id (empty = root)"
// @Param description formData string false "Description"
// @Param file formData file true "Content"
// @Success 201 {object} response.Envelope
// @Router /drive/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	var req dto.CreateFileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	upload := service.FileUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     src,
	}
	file, err := h.files.Upload(c.Request.Context(), req, upload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, file, nil)
}

// List godoc
// @Summary List files in a folder
// @Tags Drive
// @Produce json
// @Param folderId query string false "Folder id (empty = root)"
// @Param ownerId query string false "Owner id (staff only)"
// @Success 200 {object} response.Envelope
// @Router /drive/files [get]
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), c.Query("ownerId"), optionalID(c.Query("folderId")), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Download godoc
// @Summary Download file content
// @Tags Drive
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Router /drive/files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	result, err := h.files.Download(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.Content.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.ContentType, result.Content, nil)
}

// Update godoc
// @Summary Rename a file or update its description
// @Tags Drive
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.UpdateFileRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /drive/files/{id} [patch]
func (h *FileHandler) Update(c *gin.Context) {
	var req dto.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file payload"))
		return
	}
	file, err := h.files.UpdateMeta(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// Delete godoc
// @Summary Move a file to the trash
// @Tags Drive
// @Produce json
// @Param id path string true "File ID"
// @Success 204
// @Router /drive/files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.trash.DeleteFile(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
