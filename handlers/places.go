package handlers

import (
	"net/http"

	"restaurant-tracker-api/places"

	"github.com/gin-gonic/gin"
)

type PlaceSearchRequest struct {
	TextQuery string `json:"textQuery"`
}

// SearchPlaces proxies a text query to the place-search API
func (h *Handler) SearchPlaces(c *gin.Context) {
	var req PlaceSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	features, err := h.Places.Search(c.Request.Context(), req.TextQuery)
	if err != nil {
		respondError(c, err)
		return
	}
	if features == nil {
		features = []places.Place{}
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}
