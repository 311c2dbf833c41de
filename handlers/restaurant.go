package handlers

import (
	"net/http"

	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/middleware"
	"restaurant-tracker-api/models"

	"github.com/gin-gonic/gin"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type CreateRestaurantRequest struct {
	Name         string           `json:"name"`
	CuisineType  string           `json:"cuisineType"`
	LocationText string           `json:"locationText"`
	Description  string           `json:"description"`
	ImageURL     string           `json:"imageUrl"`
	Geo          *models.GeoPoint `json:"geo"`
}

// UpdateRestaurantRequest only changes the fields present in the body
type UpdateRestaurantRequest struct {
	Name         *string          `json:"name"`
	CuisineType  *string          `json:"cuisineType"`
	LocationText *string          `json:"locationText"`
	Description  *string          `json:"description"`
	ImageURL     *string          `json:"imageUrl"`
	Geo          *models.GeoPoint `json:"geo"`
	ClearGeo     bool             `json:"clearGeo"`
}

type ReplaceVisitsRequest struct {
	Visits []VisitRequest `json:"visits" binding:"required"`
}

// ListRestaurants lists the caller's restaurants, or those of ?owner=,
// filtered by ?visited=yes|no and ordered by ?sort=date|name|cuisineType
func (h *Handler) ListRestaurants(c *gin.Context) {
	listing, err := h.Catalog.ListForAccount(c.Request.Context(), middleware.GetEmail(c), catalog.ListOptions{
		Visited: c.Query("visited"),
		Owner:   c.Query("owner"),
		Sort:    c.Query("sort"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateRestaurant stores a new restaurant owned by the caller
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.Catalog.Create(c.Request.Context(), middleware.GetEmail(c), catalog.CreateInput{
		Name:         req.Name,
		CuisineType:  req.CuisineType,
		LocationText: req.LocationText,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Geo:          req.Geo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateRestaurant updates restaurant details; visits and owners are untouched
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var req UpdateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.Catalog.Update(c.Request.Context(), middleware.GetEmail(c), c.Param("id"), catalog.UpdateInput{
		Name:         req.Name,
		CuisineType:  req.CuisineType,
		LocationText: req.LocationText,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Geo:          req.Geo,
		ClearGeo:     req.ClearGeo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ReplaceVisits overwrites the visit history
func (h *Handler) ReplaceVisits(c *gin.Context) {
	var req ReplaceVisitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	visits := make([]catalog.VisitInput, 0, len(req.Visits))
	for _, v := range req.Visits {
		visits = append(visits, v.input())
	}

	r, err := h.Catalog.ReplaceVisits(c.Request.Context(), middleware.GetEmail(c), c.Param("id"), visits)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRestaurant permanently removes a restaurant
func (h *Handler) DeleteRestaurant(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), middleware.GetEmail(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}
