package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/config"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/db"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/handler"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/middleware"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/repository"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/router"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/service"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "engage")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	handler.InitMetrics(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	repo := repository.NewInteractionRepo(pool)
	aggSvc := service.NewAggregateService(pool)
	submitSvc := service.NewSubmitService(repo, cache)
	statsSvc := service.NewStatsService(repo, cache)

	// Keeps the precomputed aggregate path fresh after writes.
	worker := service.NewAggregateWorker(pool, aggSvc, cache)
	go worker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Engage API",
		ServerHeader: "Engage",
	})

	router.Setup(app, &router.Handlers{
		Interaction: handler.NewInteractionHandler(submitSvc, statsSvc),
		Article:     handler.NewArticleHandler(statsSvc),
		Export:      handler.NewExportHandler(repo),
		Health:      handler.NewHealthHandler(pool, cache.Client()),
	}, cfg.CORSOrigins)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		cancel()
		_ = app.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("engage backend starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
