package main

import (
	"context"
	"log"

	"github.com/quizdeck/quizdeck-backend/config"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/bootstrap"
	"github.com/quizdeck/quizdeck-backend/internal/cache"
	cronjob "github.com/quizdeck/quizdeck-backend/internal/roles/cron"
	"github.com/quizdeck/quizdeck-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	clients, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatalf("initialize firebase: %v", err)
	}
	defer clients.Firestore.Close()

	docStore := store.NewFirestoreStore(clients.Firestore)

	// The cache is optional infrastructure: without it, role lookups hit the
	// store and rate limiting is disabled.
	roleCache, err := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cache.DefaultTTL,
	})
	if err != nil {
		log.Printf("[warn] operation=startup message=redis unavailable, continuing without cache: %v", err)
		roleCache = nil
	} else {
		defer roleCache.Close()
	}

	router, services := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Cfg:   cfg,
		Store: docStore,
		Auth:  clients,
		Cache: roleCache,
	})

	cronjob.NewScheduler(services.Roles).Start()

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
