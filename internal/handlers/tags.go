package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// TagHandler exposes the vendor-shaped tag endpoints.
type TagHandler struct {
	tags *services.TagService
}

// NewTagHandler constructs a tag handler.
func NewTagHandler(db *gorm.DB) (*TagHandler, error) {
	tags, err := services.NewTagService(db)
	if err != nil {
		return nil, err
	}
	return &TagHandler{tags: tags}, nil
}

// ListPartner returns the partner-level tag catalogue.
func (h *TagHandler) ListPartner(c *gin.Context) {
	rows, err := h.tags.ListPartner(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": rows})
}

// ListForUser returns the user's tags merged with the partner catalogue.
func (h *TagHandler) ListForUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.tags.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": rows})
}

// Replace swaps the user's custom tag set, matching the vendor's
// whole-list PUT.
func (h *TagHandler) Replace(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload struct {
		Tags []string `json:"tags"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	rows, err := h.tags.ReplaceForUser(requestContext(c), userID, payload.Tags)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": rows})
}
