package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/config"
	"github.com/topicrally/backend/internal/db"
	"github.com/topicrally/backend/internal/events"
	apphttp "github.com/topicrally/backend/internal/http"
	"github.com/topicrally/backend/internal/http/handlers"
	"github.com/topicrally/backend/internal/repositories"
	"github.com/topicrally/backend/internal/services"
	"github.com/topicrally/backend/internal/ton"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	listenerRepo := repositories.NewListenerRepo(pool)
	messageRepo := repositories.NewTopicMessageRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Ledger
	tonClient, err := ton.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to ton", zap.Error(err))
	}
	depositOracle, err := ton.NewDepositOracle(tonClient, cfg.EscrowWalletAddress, cfg.DepositLookbackTxs, log)
	if err != nil {
		log.Fatal("invalid escrow wallet address", zap.Error(err))
	}

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	listenerService := services.NewListenerService(ctx, listenerRepo, messageRepo, tonClient, publisher, log)
	rewardsClient := services.NewRewardsClient(cfg.RewardEngineURL, cfg.RewardEngineTimeout, log)
	processor := services.NewProcessor(campaignRepo, rewardsClient, auditRepo, publisher, log)
	scheduler := services.NewScheduler(campaignRepo, processor, log)
	sweeper := services.NewSweeper(campaignRepo, processor, cfg.SweepInterval, log)
	campaignService := services.NewCampaignService(
		campaignRepo, userRepo, tonClient, services.EdVerifier{}, depositOracle,
		scheduler, listenerService, auditRepo, publisher, log,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	userHandler := handlers.NewUserHandler(userRepo, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, campaignRepo, messageRepo, log)
	listenerHandler := handlers.NewListenerHandler(listenerService, log)
	adminHandler := handlers.NewAdminHandler(sweeper, auditRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Recover state lost with the previous process: re-arm end-of-life timers
	// and reopen topic subscriptions, then start the periodic sweep.
	if err := scheduler.Rehydrate(ctx); err != nil {
		log.Error("timer rehydration failed, sweep will cover due campaigns", zap.Error(err))
	}
	if err := listenerService.Resume(ctx); err != nil {
		log.Error("listener resume failed", zap.Error(err))
	}
	sweeper.Start(ctx)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, campaignHandler, listenerHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		scheduler.Stop()
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
