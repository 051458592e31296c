package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/crewdeckhq/crewdeck/internal/auth"
	"github.com/crewdeckhq/crewdeck/internal/handlers"
	"github.com/crewdeckhq/crewdeck/internal/middleware"
)

func registerCompanyRoutes(api *gin.RouterGroup, companies *handlers.CompanyHandler, members *handlers.CompanyMemberHandler, jwt *iauth.JWTService) {
	requireAuth := middleware.Auth(jwt)

	// Join and decline accept signed request codes from users without an
	// account yet, so authentication is optional there.
	optionalAuth := middleware.OptionalAuth(jwt)
	api.PUT("/companies-join", optionalAuth, members.Join)
	api.PUT("/companies-decline", optionalAuth, members.Decline)

	group := api.Group("/companies")
	group.Use(requireAuth)
	{
		group.POST("", companies.Create)
		group.GET("", companies.List)
		group.GET("/:id", companies.Get)

		group.GET("/:id/members", members.List)
		group.PUT("/:id/leave", members.Leave)
		group.DELETE("/:id/members/:memberID", members.Remove)
		group.PUT("/:id/member-status", members.ChangeStatus)
		group.POST("/:id/request-join", members.RequestJoin)
		group.PUT("/:id/approve-request-join", members.ApproveRequestJoin)
		group.PUT("/:id/decline-request-join", members.DeclineRequestJoin)
		group.POST("/:id/invite", members.Invite)
		group.POST("/:id/send-reminder", members.SendReminder)
		group.POST("/:id/generate-invitation-link", members.GenerateInvitationLink)
	}
}
