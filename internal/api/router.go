package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// RouterOptions configures the middleware chain.
type RouterOptions struct {
	CORSOrigins []string
	// RateLimit is applied to every /api route when set.
	RateLimit gin.HandlerFunc
}

// NewRouter wires the handler into a gin engine.
func NewRouter(h *Handler, opts RouterOptions, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log.Component("http")))
	r.Use(CORS(opts.CORSOrigins))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}

	// Public routes
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/products/:id/reviews", h.ListReviews)
	api.GET("/ranking/global", h.GetGlobalRanking)
	api.GET("/ranking/city/:city", h.GetCityRanking)
	api.GET("/users/:id/rank", h.GetUserRank)
	api.GET("/map/plantings", h.MapPlantings)

	authed := api.Group("")
	authed.Use(h.RequireAuth())
	{
		authed.GET("/me", h.Me)
		authed.GET("/users/:id", h.GetUser)

		authed.POST("/submissions", h.CreateSubmission)
		authed.GET("/submissions/mine", h.ListMySubmissions)
		authed.GET("/submissions/:id", h.GetSubmission)

		authed.POST("/redeem/:id", h.Redeem)
		authed.GET("/promos", h.ListPromos)
		authed.GET("/promos/:id/qr", h.PromoQR)
		authed.POST("/promos/:id/review", h.ReviewPromo)

		authed.GET("/my-rank", h.GetMyRank)
		authed.GET("/my-stats", h.GetMyStats)
		authed.GET("/achievements", h.GetAchievements)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)
		authed.DELETE("/notifications/:id", h.DeleteNotification)
	}

	admin := authed.Group("")
	admin.Use(h.RequireAdmin())
	{
		admin.GET("/users", h.ListUsers)
		admin.GET("/submissions", h.ListSubmissions)
		admin.POST("/submissions/:id/action", h.SubmissionAction)
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
	}

	return r
}
