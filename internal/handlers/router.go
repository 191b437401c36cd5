package handlers

import (
	"fmt"

	"cosmicwatch/internal/middleware"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth      *AuthHandler
	Asteroid  *AsteroidHandler
	Watchlist *WatchlistHandler
	Alert     *AlertHandler
	System    *SystemHandler
}

// RegisterRoutes вешает все маршруты API; watchlist, алерты и ручные
// запуски требуют bearer-токен. Паникует, если не зарегистрировался тег neoid.
func RegisterRoutes(r *gin.Engine, h Handlers, authService service.AuthService) {
	if err := registerValidators(); err != nil {
		panic(fmt.Sprintf("handlers: failed to register validators: %v", err))
	}

	requireAuth := middleware.AuthRequired(authService)

	r.GET("/", h.System.Root)
	r.GET("/health", h.System.HealthCheck)

	api := r.Group("/api/v1")
	api.GET("/health", h.System.HealthCheck)
	api.GET("/system/stats", h.System.Stats)
	api.GET("/dashboard", h.System.GetDashboardData)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.GET("/me", requireAuth, h.Auth.Me)
		authGroup.POST("/deactivate", requireAuth, h.Auth.Deactivate)
	}

	asteroids := api.Group("/asteroids")
	{
		asteroids.GET("/feed", h.Asteroid.GetFeed)
		asteroids.GET("/search", h.Asteroid.Search)
		asteroids.GET("/hazardous", h.Asteroid.GetHazardous)
		asteroids.GET("/upcoming", h.Asteroid.GetUpcoming)
		asteroids.GET("/:id", h.Asteroid.GetByID)
		asteroids.POST("/sync", requireAuth, h.Asteroid.Sync)
	}

	watchlist := api.Group("/watchlist", requireAuth)
	{
		watchlist.GET("", h.Watchlist.List)
		watchlist.POST("", h.Watchlist.Add)
		watchlist.GET("/count", h.Watchlist.Count)
		watchlist.PUT("/:asteroid_id", h.Watchlist.Update)
		watchlist.DELETE("/:asteroid_id", h.Watchlist.Remove)
	}

	alerts := api.Group("/alerts", requireAuth)
	{
		alerts.GET("", h.Alert.List)
		alerts.GET("/unread/count", h.Alert.UnreadCount)
		alerts.GET("/export", h.Alert.Export)
		alerts.PUT("/read-all", h.Alert.MarkAllRead)
		alerts.PUT("/:id/read", h.Alert.MarkRead)
		alerts.DELETE("/:id", h.Alert.Delete)
		alerts.POST("/generate", h.Alert.Generate)
	}
}
