package main

import (
	"errors"
	"log"
	"os"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/push"
	"github.com/ourday-app/ourday/internal/store"
	"github.com/ourday-app/ourday/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	logConfig := logger.Config{
		Level:    logger.ParseLevel(cfg.LogLevel),
		FilePath: cfg.LogFile,
		Console:  true,
	}
	if err := logger.Init(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	st, err := store.Open(cfg.RedisURL, cfg.PostgresURL)
	if errors.Is(err, store.ErrNotConfigured) {
		log.Printf("warning: no blob store configured, state endpoints will answer 503")
		st = nil
	} else if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	srv := server.New(server.Options{
		Store: st,
		VAPID: push.VAPIDConfig{
			PublicKey:  cfg.PushPublicKey,
			PrivateKey: cfg.PushPrivateKey,
			Subject:    cfg.PushSubject,
		},
		DispatchSecret: cfg.DispatchSecret,
	})

	addr := cfg.ListenAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	log.Printf("OurDay server starting on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
