package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appdist "github.com/milordsutrix/tool-tubecutter/application/distribution"
	"github.com/milordsutrix/tool-tubecutter/application/process"
	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/archive"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/config"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/drive"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/ffmpeg"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/httpapi"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/memstore"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/redisstore"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/ws"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/ytdlp"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Starts the HTTP server: the JSON API, the download endpoints, the
websocket notification endpoint and the Google Drive OAuth callback.

The server runs until interrupted and shuts down gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// storage is what both entity store backends provide
type storage interface {
	media.Repository
	distribution.HandshakeStore
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration is missing or invalid; run 'tubecutter setup' first")
	}

	logging.Configure(logging.Config{Level: cfg.LogLevel})
	logger := logging.WithComponent("serve")

	if err := os.MkdirAll(cfg.Paths.WorkingDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		return err
	}

	fetcher := ytdlp.NewFetcher(ytdlp.WithYTDLPPath(cfg.Tools.YTDLPPath))
	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithFFmpegPath(cfg.Tools.FFmpegPath),
		ffmpeg.WithBitrate(cfg.Audio.Bitrate),
	)
	if err := extractor.VerifyInstalled(ctx); err != nil {
		logger.Warn().Err(err).Msg("ffmpeg not found; extraction will fail until it is installed")
	}

	hub := ws.NewHub()
	processSvc := process.NewService(store, fetcher, extractor, archive.NewZipBundler(), cfg.Paths.WorkingDirectory)
	provider := drive.NewProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	uploadSvc := appdist.NewUploadService(store, store, provider, hub)

	server := httpapi.NewServer(processSvc, uploadSvc, hub, httpapi.Options{
		WorkDir:        cfg.Paths.WorkingDirectory,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		RequestsPerMin: cfg.Server.RequestsPerMin,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddress})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Storage.RedisAddress, err)
		}
		return redisstore.New(client, cfg.Handshake.TTL), nil
	default:
		store := memstore.New(cfg.Handshake.TTL)
		go store.Sweep(ctx, cfg.Handshake.SweepInterval)
		return store, nil
	}
}
