package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewdeckhq/crewdeck/pkg/response"
)

// Health reports liveness plus how long the process has been serving.
func Health() gin.HandlerFunc {
	started := time.Now()

	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	}
}
