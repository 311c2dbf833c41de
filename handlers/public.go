package handlers

import (
	"errors"
	"io"
	"net/http"

	"restaurant-tracker-api/catalog"

	"github.com/gin-gonic/gin"
)

type VisitRequest struct {
	Date    string `json:"date"`
	Comment string `json:"comment"`
}

func (v VisitRequest) input() catalog.VisitInput {
	return catalog.VisitInput{Date: v.Date, Comment: v.Comment}
}

// ListPublicRestaurants returns the curator's list (no auth)
func (h *Handler) ListPublicRestaurants(c *gin.Context) {
	listing, err := h.Catalog.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// GetRestaurant returns a single restaurant (no auth)
func (h *Handler) GetRestaurant(c *gin.Context) {
	r, err := h.Catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// RecordVisit appends a visit to any restaurant (no auth). A missing date means now.
func (h *Handler) RecordVisit(c *gin.Context) {
	var req VisitRequest
	// an empty body records a visit now without comment
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	r, err := h.Catalog.RecordVisit(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
