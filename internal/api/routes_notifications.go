package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/crewdeckhq/crewdeck/internal/auth"
	"github.com/crewdeckhq/crewdeck/internal/handlers"
	"github.com/crewdeckhq/crewdeck/internal/middleware"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, jwt *iauth.JWTService) {
	// The stream endpoint authenticates via query token inside the handler.
	api.GET("/notifications/stream", handler.Stream)

	group := api.Group("/notifications")
	group.Use(middleware.Auth(jwt))
	{
		group.GET("", handler.List)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
	}
}
