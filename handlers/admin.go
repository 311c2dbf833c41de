package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ── Admin Endpoints ──────────────────────────────────────────────────────────

// AdminGetAllRestaurants lists every restaurant regardless of owner
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	listing, err := h.Catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
