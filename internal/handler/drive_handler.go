package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/service"
	appErrors "github.com/edustack/portal-api/pkg/errors"
	"github.com/edustack/portal-api/pkg/response"
)

type moveService interface {
	Move(ctx context.Context, req dto.MoveRequest, actor *models.JWTClaims) (*models.MoveResult, error)
}

type statsService interface {
	Stats(ctx context.Context, ownerID string, actor *models.JWTClaims) (*models.DriveStats, error)
}

// DriveHandler carries the cross-cutting drive endpoints: batch move, usage
// stats, and the change-event stream.
type DriveHandler struct {
	tree   moveService
	stats  statsService
	events *service.EventBroker
}

// NewDriveHandler constructs the handler.
func NewDriveHandler(tree moveService, stats statsService, events *service.EventBroker) *DriveHandler {
	return &DriveHandler{tree: tree, stats: stats, events: events}
}

// Move godoc
// @Summary Move a batch of items to a destination folder
// @Tags Drive
// @Accept json
// @Produce json
// @Param payload body dto.MoveRequest true "Items and destination"
// @Success 200 {object} response.Envelope
// @Router /drive/move [post]
func (h *DriveHandler) Move(c *gin.Context) {
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid move payload"))
		return
	}
	result, err := h.tree.Move(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stats godoc
// @Summary Per-owner drive usage counters
// @Tags Drive
// @Produce json
// @Param ownerId query string false "Owner id (staff only)"
// @Success 200 {object} response.Envelope
// @Router /drive/stats [get]
func (h *DriveHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context(), c.Query("ownerId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Events godoc
// @Summary Stream drive change events for the caller's tree (SSE)
// @Tags Drive
// @Produce text/event-stream
// @Success 200
// @Router /drive/events [get]
func (h *DriveHandler) Events(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.events == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "event stream not configured"))
		return
	}

	ownerID, err := service.ResolveOwner(claims, c.Query("ownerId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	events, cancel := h.events.Subscribe(ownerID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent("change", string(payload))
			return true
		}
	})
}
