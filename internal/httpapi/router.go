// Package httpapi serves learners' review collections over HTTP for the web app.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/chirpolly/internal/logger"
)

type RouterConfig struct {
	ReviewHandler *ReviewHandler
	Log           *logger.Logger
	AllowOrigins  []string
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Log))
	router.Use(CORS(cfg.AllowOrigins))

	h := cfg.ReviewHandler
	router.GET("/healthcheck", HealthCheck)

	api := router.Group("/api")
	{
		// Content
		api.GET("/languages", h.ListLanguages)
		api.GET("/languages/:lang/modules", h.ListModules)

		// Learner collections
		learner := api.Group("/learners/:learner")
		learner.GET("/items", h.ListItems)
		learner.GET("/due", h.ListDue)
		learner.GET("/stats", h.GetStats)
		learner.GET("/activity", h.GetActivity)
		learner.POST("/units", h.CompleteUnit)
		learner.GET("/units", h.ListCompletedUnits)
		learner.GET("/items/:item/preview", h.PreviewItem)
		learner.POST("/items/:item/rate", h.RateItem)
		learner.GET("/snapshot", h.ExportSnapshot)
		learner.PUT("/snapshot", h.ImportSnapshot)
	}
	return router
}
