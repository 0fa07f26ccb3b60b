package commands

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/bridge"
	"github.com/mremehr/collab-core/internal/config"
	"github.com/mremehr/collab-core/internal/observer"
	"github.com/mremehr/collab-core/internal/server"
	"github.com/mremehr/collab-core/pkg/collab"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collaboration broker",
	Long: `Run the broker: HTTP API, WebSocket event stream, and the observer
frame scanner, all in one process. State is in-memory only and is lost on
exit.

Configuration comes from COLLAB_* environment variables, optionally layered
over a YAML file named by COLLAB_CONFIG:

  COLLAB_BIND                    listen address (default 127.0.0.1:7878)
  COLLAB_OBSERVER_DIR            frame directory (default /tmp/frostwall-observer/frames)
  COLLAB_OBSERVER_SCAN_MS        scan interval in ms (default 800)
  COLLAB_OBSERVER_SEED_EXISTING  skip files already present on first scan
  COLLAB_REDIS_ADDR              enable the Redis event mirror
  COLLAB_INSTANCE                mirror channel namespace (default "default")`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := collab.NewStore()

	srv := server.New(store, cfg.Bind)
	if err := srv.Start(); err != nil {
		return err
	}

	ingestor := observer.New(store, observer.Config{
		Dir:          cfg.ObserverDir,
		ScanInterval: cfg.ScanInterval(),
		SeedExisting: cfg.ObserverSeedExisting,
	})
	go func() {
		if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[Observer] stopped: %v", err)
		}
	}()

	if cfg.MirrorEnabled() {
		mirror, err := bridge.New(store, &redis.Options{Addr: cfg.RedisAddr}, cfg.Instance)
		if err != nil {
			return err
		}
		defer mirror.Close()
		go func() {
			if err := mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[Bridge] stopped: %v", err)
			}
		}()
	}

	log.Printf("[Server] broker up: bind=%s observer_dir=%s scan=%v", cfg.Bind, cfg.ObserverDir, cfg.ScanInterval())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
