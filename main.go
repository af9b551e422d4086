package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wingo/config"
	"wingo/database"
	"wingo/helpers"
	"wingo/jobs"
	"wingo/providers"
	_ "wingo/providers/bow"
	_ "wingo/providers/wingo"
	"wingo/routes"
	"wingo/services"
	tasks "wingo/task"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logger, err := helpers.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer logger.Sync()
	if !envLoaded {
		logger.Info("ℹ️  No .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to connect to database", zap.Error(err))
	}

	rdb, err := database.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to connect to redis", zap.Error(err))
	}

	primaryVariant, ok := providers.Get(cfg.PrimaryVariant)
	if !ok {
		logger.Fatal("❌ Unknown primary variant", zap.String("variant", cfg.PrimaryVariant))
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("❌ Invalid game timezone", zap.Error(err))
	}

	clock := helpers.NewSystemClock(loc)
	wallet := services.NewWallet(db)
	primarySettings := services.NewSettingsStore(db, primaryVariant, logger)
	referral := services.NewReferralProcessor(db, wallet, primarySettings, logger)
	recharge := services.NewRechargeService(db, wallet, primarySettings, referral, logger)
	events := services.NewEventPublisher(rdb, logger)

	var limiter services.RateLimiter
	if rdb != nil {
		limiter = services.NewRedisRateLimiter(rdb, cfg.BetRateLimit, cfg.BetRateWindow)
	}

	engines := services.Engines{}
	var generators []jobs.DayGenerator
	var resettlers []tasks.Resettler
	for _, code := range cfg.Variants {
		variant, ok := providers.Get(code)
		if !ok {
			logger.Fatal("❌ Unknown game variant", zap.String("variant", code))
		}
		engine := services.NewEngine(db, variant, wallet, referral, services.EngineOptions{
			Clock:  clock,
			Events: events,
			Settlement: services.SettlementOptions{
				MaxAttempts: cfg.SettleMaxAttempts,
				RetryDelay:  cfg.SettleRetryDelay,
			},
		}, logger)
		if err := engine.Start(ctx); err != nil {
			logger.Fatal("❌ Failed to start game engine", zap.String("variant", code), zap.Error(err))
		}
		logger.Info("🎮 Game engine started", zap.String("variant", code))

		engines[variant.Code] = engine
		generators = append(generators, engine.Generator)
		resettlers = append(resettlers, engine.Settlement)
	}
	if _, ok := engines.Get(primaryVariant.Code); !ok {
		// Bonus settings are read from the primary variant's row.
		if _, err := primarySettings.EnsureDefaults(ctx); err != nil {
			logger.Fatal("❌ Failed to seed primary settings", zap.Error(err))
		}
	}

	daily := jobs.NewDailyGeneration(clock, logger, generators...)
	daily.Start(ctx)

	app := fiber.New()
	routes.Setup(app, routes.Deps{
		Engines:     engines,
		Wallet:      wallet,
		Referral:    referral,
		Recharge:    recharge,
		RateLimiter: limiter,
		AdminSecret: cfg.AdminSecret,
		Log:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tasks.RunResettleSweep(gctx, cfg.ResettleInterval, logger.Named("resettle"), resettlers...)
	})
	g.Go(func() error {
		logger.Info("🚀 Server running", zap.String("addr", cfg.Addr()))
		return app.Listen(cfg.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("🛑 Gracefully shutting down...")
		daily.Stop()
		for _, engine := range engines {
			engine.Stop()
		}
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("❌ Server stopped with error", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("✅ Server exited cleanly")
}
