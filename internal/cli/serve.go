package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/push"
	"github.com/ourday-app/ourday/internal/store"
	"github.com/ourday-app/ourday/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync and push server",
	Long: `Run the shared-state server both boards sync against. Needs a
blob store (OURDAY_REDIS_URL or OURDAY_POSTGRES_URL); without one the
server still starts but answers 503 so clients fall back to local-only
mode.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logger.F("error", err))
		cfg = config.DefaultConfig()
	}

	st, err := store.Open(cfg.RedisURL, cfg.PostgresURL)
	if errors.Is(err, store.ErrNotConfigured) {
		logger.Warn("No blob store configured, state endpoints will answer 503")
		fmt.Println("warning: no blob store configured (set OURDAY_REDIS_URL or OURDAY_POSTGRES_URL)")
		st = nil
	} else if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	vapid := push.VAPIDConfig{
		PublicKey:  cfg.PushPublicKey,
		PrivateKey: cfg.PushPrivateKey,
		Subject:    cfg.PushSubject,
	}
	if !vapid.Ready() {
		logger.Warn("VAPID keys not configured, push endpoints will answer 503")
	}

	srv := server.New(server.Options{
		Store:          st,
		VAPID:          vapid,
		DispatchSecret: cfg.DispatchSecret,
	})

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	logger.Info("Server starting", logger.F("addr", addr))
	return srv.Start(addr)
}
