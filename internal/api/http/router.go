package http

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(matchController *MatchController, socketController *SocketController, allowOrigins []string) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{
		"Content-Type",
		"Origin",
		"Accept",
		TokenHeader,
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if matchController != nil {
		api.POST("/queue", matchController.Enqueue)
		api.POST("/queue/cancel", matchController.Cancel)
		api.GET("/match", matchController.PollMatch)
		api.POST("/signal", matchController.Signal)
		api.GET("/events", matchController.Events)
		api.GET("/stats", matchController.Stats)
		api.GET("/ice", matchController.ICEServers)
		api.DELETE("/presence/:peerId", matchController.Disconnect)

		sessions := api.Group("/sessions")
		sessions.GET("/:sessionID", matchController.GetSession)
		sessions.POST("/:sessionID/end", matchController.EndSession)
	}

	if socketController != nil {
		api.GET("/ws", socketController.Connect)
	}

	return router
}
