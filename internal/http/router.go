package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/config"
	"github.com/topicrally/backend/internal/http/handlers"
	"github.com/topicrally/backend/internal/middleware"
	"github.com/topicrally/backend/internal/rbac"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	campaignHandler *handlers.CampaignHandler,
	listenerHandler *handlers.ListenerHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/wallet", authHandler.WalletAuth)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/ping", userHandler.Ping)

	// Campaigns
	protected.Post("/campaigns", middleware.RequirePermission(cfg, rbac.PermCreateCampaign), campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:topic_id", campaignHandler.GetCampaign)
	protected.Get("/campaigns/:topic_id/messages", campaignHandler.ListMessages)

	// Topic listeners
	protected.Post("/listeners", middleware.RequirePermission(cfg, rbac.PermSetupListener), listenerHandler.SetupListener)
	protected.Get("/listeners/:topic_id", listenerHandler.GetListenerStatus)

	// Admin
	admin := protected.Group("/admin")
	admin.Post("/sweep", middleware.RequirePermission(cfg, rbac.PermTriggerSweep), adminHandler.TriggerSweep)
	admin.Get("/audit", middleware.RequirePermission(cfg, rbac.PermViewAudit), adminHandler.ListAudit)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
