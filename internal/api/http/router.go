package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(signalingController *SignalingController, statusController *StatusController, allowedOrigins []string) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(config))

	if statusController != nil {
		router.GET("/", statusController.Health)
		router.GET("/healthz", statusController.Health)
		router.GET("/users", statusController.Users)

		api := router.Group("/api")
		api.GET("/ice-servers", statusController.ICEServers)
	}

	if signalingController != nil {
		router.GET("/ws", signalingController.Connect)
	}

	return router
}
