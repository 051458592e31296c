package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewdeckhq/crewdeck/internal/auditctx"
	"github.com/crewdeckhq/crewdeck/internal/middleware"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
)

// requestContext safely returns the request context with a background fallback
// for tests, tagged with actor metadata for audit logging.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}

	ctx := context.Background()
	actor := auditctx.Actor{UserID: currentUserID(c)}
	if req := c.Request; req != nil {
		ctx = req.Context()
		actor.IPAddress = c.ClientIP()
		actor.UserAgent = req.UserAgent()
	}
	return auditctx.WithActor(ctx, actor)
}

// currentUserID returns the authenticated user's id, empty for anonymous requests.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// companyIDParam parses the numeric company id path parameter.
func companyIDParam(c *gin.Context) (uint64, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewBadRequest("Invalid company id.")
	}
	return id, nil
}
