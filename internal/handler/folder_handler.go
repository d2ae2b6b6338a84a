package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
	"github.com/edustack/portal-api/pkg/response"
)

type folderService interface {
	CreateFolder(ctx context.Context, req dto.CreateFolderRequest, actor *models.JWTClaims) (*models.Folder, error)
	ListFolders(ctx context.Context, ownerID string, parentID *string, actor *models.JWTClaims) ([]models.Folder, error)
	Breadcrumbs(ctx context.Context, folderID string, actor *models.JWTClaims) ([]models.Breadcrumb, error)
	RenameFolder(ctx context.Context, folderID, name string, actor *models.JWTClaims) (*models.Folder, error)
}

type folderTrashService interface {
	DeleteFolder(ctx context.Context, folderID string, actor *models.JWTClaims) error
}

// FolderHandler manages folder HTTP endpoints.
type FolderHandler struct {
	tree  folderService
	trash folderTrashService
}

// NewFolderHandler constructs the handler.
func NewFolderHandler(tree folderService, trash folderTrashService) *FolderHandler {
	return &FolderHandler{tree: tree, trash: trash}
}

// Create godoc
// @Summary Create a folder
// @Tags Drive
// @Accept json
// @Produce json
// @Param payload body dto.CreateFolderRequest true "Folder"
// @Success 201 {object} response.Envelope
// @Router /drive/folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	var req dto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid folder payload"))
		return
	}
	folder, err := h.tree.CreateFolder(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, folder, nil)
}

// List godoc
// @Summary List child folders
// @Tags Drive
// @Produce json
// @Param parentId query string false "Parent folder id (empty = root)"
// @Param ownerId query string false "Owner id (staff only)"
// @Success 200 {object} response.Envelope
// @Router /drive/folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.tree.ListFolders(c.Request.Context(), c.Query("ownerId"), optionalID(c.Query("parentId")), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, folders, nil)
}

// Breadcrumbs godoc
// @Summary Resolve a folder's ancestor chain, root first
// @Tags Drive
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /drive/folders/{id}/breadcrumbs [get]
func (h *FolderHandler) Breadcrumbs(c *gin.Context) {
	chain, err := h.tree.Breadcrumbs(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chain, nil)
}

// Rename godoc
// @Summary Rename a folder
// @Tags Drive
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body dto.RenameRequest true "New name"
// @Success 200 {object} response.Envelope
// @Router /drive/folders/{id} [patch]
func (h *FolderHandler) Rename(c *gin.Context) {
	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rename payload"))
		return
	}
	folder, err := h.tree.RenameFolder(c.Request.Context(), c.Param("id"), req.Name, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, folder, nil)
}

// Delete godoc
// @Summary Move a folder and its contents to the trash
// @Tags Drive
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204
// @Router /drive/folders/{id} [delete]
func (h *FolderHandler) Delete(c *gin.Context) {
	if err := h.trash.DeleteFolder(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
