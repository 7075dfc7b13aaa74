package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(roomController *RoomController) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:3000",
	}
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
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if roomController != nil {
		rooms := api.Group("/rooms")
		rooms.POST("/create", roomController.CreateRoom)
		rooms.GET("/:roomID", roomController.GetRoom)
		rooms.DELETE("/:roomID", roomController.DeleteRoom)
		rooms.POST("/:roomID/join", roomController.JoinRoom)
		rooms.POST("/:roomID/leave", roomController.LeaveRoom)
		rooms.POST("/:roomID/cancel", roomController.CancelRoom)
		rooms.GET("/:roomID/chat", roomController.ChatHistory)
		rooms.POST("/:roomID/chat", roomController.SendChat)
		rooms.GET("/:roomID/chat/ws", roomController.ChatWS)
	}

	return router
}
