package main

import (
	"context"
	"fmt"
	"log"

	"product-catalog-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	userRepo := core.NewPgUserRepository(db)
	productRepo := core.NewPgProductRepository(db)
	authService := core.NewAuthService(userRepo, core.LogMailer{}, cfg)

	// The queue and metrics are optional: when events are disabled or Redis
	// is unreachable, mutations still succeed and publishing is a no-op.
	var publisher *core.EventPublisher
	var metrics *core.MetricsService
	if cfg.EventsEnabled {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, events degraded to no-op: %v", err)
		} else {
			defer redisClient.Close()
			publisher = core.NewEventPublisher(core.NewRedisQueue(redisClient), true, cfg.PublishTimeout)
			metrics = core.NewMetricsService(redisClient)
		}
	}

	router := core.NewRouter(cfg, authService, productRepo, publisher, metrics)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s (events=%v search=%v)", addr, cfg.EventsEnabled, cfg.SearchEnabled)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
