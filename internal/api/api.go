// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/api/handlers"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	RotationService handlers.RotationService
	ProposalService handlers.ProposalService
	SalesService    handlers.SalesService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
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
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services != nil {
		if services.RotationService != nil {
			rotationHandler := handlers.NewRotationHandler(services.RotationService)
			rotationGroup := apiGroup.Group("/rotation")
			{
				rotationGroup.POST("/analysis/run", rotationHandler.RunAnalysis)
				rotationGroup.GET("/analysis/status", rotationHandler.GetStatus)
				rotationGroup.GET("/dead-stock", rotationHandler.GetDeadStock)
				rotationGroup.GET("/value-report", rotationHandler.GetValueReport)
				rotationGroup.GET("/export.xlsx", rotationHandler.ExportXLSX)

				rotationGroup.GET("/ignored", rotationHandler.ListIgnored)
				rotationGroup.POST("/ignored", rotationHandler.AddIgnored)
				rotationGroup.DELETE("/ignored/:symbol", rotationHandler.RemoveIgnored)
			}
		}

		if services.ProposalService != nil {
			proposalHandler := handlers.NewProposalHandler(services.ProposalService)
			proposalGroup := apiGroup.Group("/proposals")
			{
				proposalGroup.GET("", proposalHandler.GetProposals)
				proposalGroup.GET("/periods", proposalHandler.ListPeriods)
				proposalGroup.POST("/periods/import", proposalHandler.ImportPeriods)
				proposalGroup.PUT("/periods/:symbol", proposalHandler.SavePeriod)
				proposalGroup.DELETE("/periods/:symbol", proposalHandler.DeletePeriod)
			}
		}

		if services.SalesService != nil {
			salesHandler := handlers.NewSalesHandler(services.SalesService)
			salesGroup := apiGroup.Group("/sales")
			{
				salesGroup.GET("/seasonality", salesHandler.GetSeasonality)
				salesGroup.GET("/summary", salesHandler.GetSummary)
			}
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
