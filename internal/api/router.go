package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/app"
	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/internal/handlers"
	"github.com/tiles-dev/pfm-sim/internal/middleware"
	"github.com/tiles-dev/pfm-sim/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the vendor
// API surface plus the simulator's own auth and migration endpoints.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, evaluator *alerts.Evaluator) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("alert evaluator must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	// Protected routes accept either a simulator access token or a
	// partner-signed assertion naming a known partner customer id.
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	requireAuth := middleware.Auth(jwt, middleware.PartnerCredentials{
		ID:     cfg.Partner.ID,
		Domain: cfg.Partner.Domain,
		APIKey: cfg.Partner.APIKey,
	}, func(ctx context.Context, pcid string) (uint, error) {
		user, err := users.GetByPCID(ctx, pcid)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	})

	r.GET("/api/auth/me", requireAuth, authHandler.Me)

	// Migration endpoints
	migrateHandler, err := handlers.NewMigrateHandler(db)
	if err != nil {
		return nil, err
	}
	registerMigrateRoutes(r.Group("/api/migrate", requireAuth), migrateHandler)

	// Vendor API surface
	v2 := r.Group("/api/v2", requireAuth)
	v2.GET("/users/:userId", authHandler.CurrentUser)

	accountHandler, err := handlers.NewAccountHandler(db)
	if err != nil {
		return nil, err
	}
	registerAccountRoutes(v2, accountHandler)

	transactionHandler, err := handlers.NewTransactionHandler(db, evaluator)
	if err != nil {
		return nil, err
	}
	registerTransactionRoutes(v2, transactionHandler)

	budgetHandler, err := handlers.NewBudgetHandler(db)
	if err != nil {
		return nil, err
	}
	registerBudgetRoutes(v2, budgetHandler)

	savingsHandler, err := handlers.NewSavingsGoalHandler(db)
	if err != nil {
		return nil, err
	}
	payoffHandler, err := handlers.NewPayoffGoalHandler(db)
	if err != nil {
		return nil, err
	}
	registerGoalRoutes(v2, savingsHandler, payoffHandler)

	cashflowHandler, err := handlers.NewCashflowHandler(db)
	if err != nil {
		return nil, err
	}
	registerCashflowRoutes(v2, cashflowHandler)

	alertHandler, err := handlers.NewAlertHandler(db, evaluator)
	if err != nil {
		return nil, err
	}
	notificationHandler, err := handlers.NewNotificationHandler(db)
	if err != nil {
		return nil, err
	}
	registerAlertRoutes(v2, alertHandler, notificationHandler)

	tagHandler, err := handlers.NewTagHandler(db)
	if err != nil {
		return nil, err
	}
	registerTagRoutes(v2, tagHandler)
	// Partner-level tag catalogue sits outside the per-user tree.
	r.GET("/api/v2/tags", requireAuth, tagHandler.ListPartner)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
