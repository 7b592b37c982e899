package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(
	peerController *PeerController,
	sessionController *SessionController,
	signalingController *SignalingController,
	corsOrigins []string,
) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = corsOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"ok": true})
	})

	api := router.Group("/api")

	if peerController != nil {
		api.GET("/peers", peerController.ListPeers)
		api.GET("/peers/:peerID", peerController.GetPeer)
		api.POST("/status", peerController.UpdateStatus)
	}

	if sessionController != nil {
		api.POST("/session", sessionController.CreateSession)
		api.GET("/session/:sessionID", sessionController.GetSession)
		api.POST("/session/:sessionID/accept", sessionController.AcceptSession)
		api.POST("/session/:sessionID/end", sessionController.EndSession)
	}

	if signalingController != nil {
		router.GET("/ws", signalingController.ServeWS)
	}

	return router
}
