package handlers

import (
	"context"
	"errors"
	"net/http"

	"restaurant-tracker-api/auth"
	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/models"
	"restaurant-tracker-api/places"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("context", "handlers")

// PlaceSearcher is the place-search gateway; *places.Client implements it
type PlaceSearcher interface {
	Search(ctx context.Context, textQuery string) ([]places.Place, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the services behind the HTTP API
type Handler struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Places  PlaceSearcher
	Store   Pinger
	Version string
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID), errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Unclassified failures are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError && !isUpstream(err) {
		logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isUpstream(err error) bool {
	return errors.Is(err, models.ErrUpstream) || errors.Is(err, models.ErrMissingLocation)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
