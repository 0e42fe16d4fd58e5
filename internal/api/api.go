// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/stockalert/internal/api/handlers"
	"github.com/andresuchdata/stockalert/internal/api/middleware"
	"github.com/andresuchdata/stockalert/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services are the backends the admin API exposes
type Services struct {
	AlertService *service.AlertService
}

// NewRouter builds the internal admin API. An empty allowedOrigins keeps the
// local development defaults; "*" allows any origin.
func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.AlertService != nil {
		alertHandler := handlers.NewAlertHandler(services.AlertService)
		alertGroup := apiGroup.Group("/alerts")
		{
			alertGroup.POST("/sweep", alertHandler.RunSweep)
			alertGroup.GET("/sweep/last", alertHandler.GetLastSweep)
			alertGroup.POST("/stock-changes", alertHandler.StockChanged)
			alertGroup.POST("/units/:id/evaluate", alertHandler.EvaluateUnit)
			alertGroup.GET("/units/:id/notifications", alertHandler.GetNotificationStatus)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
