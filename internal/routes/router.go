package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/logger"
	"github.com/rs/zerolog"
)

// NewRouter builds the engine with recovery, request logging and CORS.
// An empty origin list or "*" allows every origin.
func NewRouter(httpCfg config.HTTPConfig, log zerolog.Logger) *gin.Engine {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if httpCfg.AllowsAnyOrigin() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = httpCfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(corsConfig))
	return router
}
