package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cratevault.org/internal/auth"
	"cratevault.org/internal/config"
	"cratevault.org/internal/httpapi"
	"cratevault.org/internal/obs"
	"cratevault.org/internal/registry"
	"cratevault.org/internal/storage"
	"cratevault.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sessions, err := auth.NewSessions(cfg.SessionSecret, "cratevault")
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	var (
		repo       registry.Repository
		blobs      storage.BlobStore
		tokenStore auth.TokenStore
		probe      httpapi.ReadyProbe
		pgStore    *pg.Store
	)
	if cfg.DSN != "" {
		pgStore, err = pg.Open(cfg.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		repo = pgStore
		blobs = pg.NewBlobStore(pgStore.DB())
		tokenStore = pg.NewTokenStore(pgStore.DB())
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("no CRATEVAULT_PG_DSN set, using in-memory backends")
		repo = registry.NewInMemory()
		blobs = storage.NewMemory()
		tokenStore = auth.NewMemoryTokenStore()
	}

	publisher := registry.NewPublisher(repo, blobs)
	tokens := auth.NewTokenService(tokenStore)

	api := httpapi.New(probe, version, cfg.BaseURL, repo, publisher, tokens, sessions)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)
	api.SetMaxPublishBytes(cfg.MaxPublishBytes)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting cratevault-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
