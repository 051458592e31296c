package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/app"
	iauth "github.com/crewdeckhq/crewdeck/internal/auth"
	"github.com/crewdeckhq/crewdeck/internal/events"
	"github.com/crewdeckhq/crewdeck/internal/handlers"
	"github.com/crewdeckhq/crewdeck/internal/invitecode"
	"github.com/crewdeckhq/crewdeck/internal/middleware"
	"github.com/crewdeckhq/crewdeck/internal/notifications"
	"github.com/crewdeckhq/crewdeck/internal/permissions"
	"github.com/crewdeckhq/crewdeck/internal/services"
)

// NewRouter builds the Gin engine, wires middleware, constructs the service
// graph and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, hub *notifications.Hub, bus *events.Bus) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}
	codec, err := invitecode.New(cfg.Invitations.CodeSecret)
	if err != nil {
		return nil, err
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	notificationService, err := services.NewNotificationService(db, hub)
	if err != nil {
		return nil, err
	}
	companyService, err := services.NewCompanyService(db, auditService,
		services.WithDefaultMemberLimit(cfg.Companies.DefaultMemberLimit))
	if err != nil {
		return nil, err
	}
	membershipService, err := services.NewMembershipService(db, auditService, checker, bus)
	if err != nil {
		return nil, err
	}
	invitationService, err := services.NewInvitationService(db, auditService, notificationService, codec, bus,
		services.WithInvitationBaseURL(cfg.Invitations.BaseURL),
		services.WithRequestCodeTTL(cfg.Invitations.RequestTokenTTL),
	)
	if err != nil {
		return nil, err
	}

	companyHandler := handlers.NewCompanyHandler(companyService)
	memberHandler := handlers.NewCompanyMemberHandler(membershipService, invitationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub, jwt)

	api := r.Group("/api")

	registerCompanyRoutes(api, companyHandler, memberHandler, jwt)
	registerNotificationRoutes(api, notificationHandler, jwt)

	return r, nil
}
