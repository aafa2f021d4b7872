package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/handler"
	"crm-auth-service/internal/middleware"
	"crm-auth-service/pkg/config"
	"crm-auth-service/pkg/database"
	"crm-auth-service/pkg/jwtutil"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting CRM authorization service...", cfg.LogConfig()...)

	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	tokens := jwtutil.New(&jwtutil.Config{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})

	// The authorization subsystem: one store, stateless services on top.
	store := authz.NewGormStore(database.GetDB())
	authenticator := authz.NewAuthenticator(store)
	resolver := authz.NewResolver(store)
	entitlements := authz.NewEntitlements(store)
	memberships := authz.NewMemberships(store)
	gate := authz.NewGate(tokens, resolver, entitlements, log)

	authHandler := handler.NewAuthHandler(store, authenticator, tokens)
	tenantHandler := handler.NewTenantHandler(store, resolver)
	memberHandler := handler.NewMemberHandler(store, memberships, resolver)
	featureHandler := handler.NewFeatureHandler(entitlements, resolver)

	e := echo.New()

	// Global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Authenticated routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth(tokens))

	// Workspace management - creating and listing need no tenant context
	api.POST("/tenants", tenantHandler.Create)
	api.GET("/tenants", tenantHandler.List)
	api.POST("/tenants/switch", tenantHandler.Switch)

	// Operations on the active workspace, gated per action
	api.GET("/tenants/current", tenantHandler.Current,
		middleware.Guard(gate, authz.Requirement{}))
	api.PATCH("/tenants/current", tenantHandler.Update,
		middleware.Guard(gate, authz.Requirement{Action: authz.ActionUpdateTenant}))
	api.DELETE("/tenants/current", tenantHandler.Delete,
		middleware.Guard(gate, authz.Requirement{Action: authz.ActionDeleteTenant}))

	// Advisory feature map for the UI
	api.GET("/features", featureHandler.List,
		middleware.Guard(gate, authz.Requirement{}))

	// Member management - plan-gated behind the user_management feature;
	// per-operation role checks happen in the membership service
	members := api.Group("/members")
	members.Use(middleware.Guard(gate, authz.Requirement{Feature: authz.FeatureUserManagement}))
	members.GET("", memberHandler.List)
	members.POST("", memberHandler.Invite)
	members.PATCH("/:id/role", memberHandler.ChangeRole)
	members.PATCH("/:id/capabilities", memberHandler.UpdateCapabilities)
	members.DELETE("/:id", memberHandler.Remove)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
