package routes

import (
	"restaurant-tracker-api/handlers"
	"restaurant-tracker-api/middleware"
	"restaurant-tracker-api/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API on r. tokens guards the authenticated groups.
func SetupRoutes(r *gin.Engine, h *handlers.Handler, tokens middleware.TokenParser, metrics *middleware.Metrics) {
	// ── Operational ────────────────────────────────────────────────
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants (no auth needed)
		public.GET("/restaurants/public", h.ListPublicRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.PUT("/restaurants/:id/visits", h.RecordVisit)

		// Place search proxy
		public.POST("/places/search", h.SearchPlaces)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(middleware.AuthRequired(tokens))
	{
		authed.GET("/profile", h.GetProfile)

		authed.GET("/restaurants", h.ListRestaurants)
		authed.POST("/restaurants", h.CreateRestaurant)
		authed.PUT("/restaurants/:id", h.UpdateRestaurant)
		authed.PUT("/restaurants/:id/visits/replace", h.ReplaceVisits)
		authed.DELETE("/restaurants/:id", h.DeleteRestaurant)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(tokens), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
	}
}

// NewEngine builds the gin engine with recovery, request logging, CORS and
// metrics middleware, then registers every route.
func NewEngine(h *handlers.Handler, tokens middleware.TokenParser, corsOrigins []string, metrics *middleware.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if metrics != nil {
		r.Use(metrics.Middleware())
	}
	r.Use(middleware.CORS(corsOrigins))

	SetupRoutes(r, h, tokens, metrics)
	return r
}
