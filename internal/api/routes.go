package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listingsportal/server/config"
)

// NewRouter builds the gin engine with recovery, request ids, access logging and CORS.
func NewRouter(cfg config.ServerConfig, handler *Handler, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AddAllowHeaders(requestIDHeader)
	corsConfig.AddExposeHeaders(requestIDHeader)
	if len(cfg.CORSOrigins) == 0 || contains(cfg.CORSOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/listings", handler.GetByRange)
		api.GET("/listings/range", handler.GetByRange)
		api.GET("/listings/counties", handler.GetByCounties)
		api.GET("/listings/:id", handler.GetByID)

		if handler.reconciler != nil {
			api.POST("/reconcile", handler.TriggerReconcile)
		}
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
