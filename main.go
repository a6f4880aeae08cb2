package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mediastream/config"
	"mediastream/handlers"
	"mediastream/internal/logging"
	"mediastream/internal/mediastore"
	"mediastream/internal/server"
	"mediastream/services/streaming"
	"mediastream/utils"
)

func main() {
	configPath := flag.String("config", "", "settings file (default $MEDIASTREAM_CONFIG or config/settings.json)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "mediastream:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	manager := config.NewManager(configPath)
	settings, err := manager.Load()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Setup(logging.Config{
		Level:      settings.Log.Level,
		Format:     settings.Log.Format,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
		Compress:   settings.Log.Compress,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	store, err := mediastore.NewDirStore(settings.Media.Root,
		mediastore.WithOpenRetry(uint(settings.Media.OpenAttempts), settings.OpenRetryDelay()))
	if err != nil {
		return fmt.Errorf("media root: %w", err)
	}

	provider := streaming.NewLocalProvider(store, streaming.LocalConfig{
		ContentType:       settings.Media.ContentType,
		ChunkSize:         settings.Streaming.ChunkSize,
		MaxBytesPerSecond: settings.Streaming.MaxBytesPerSecond,
	})

	media := handlers.NewMediaHandler(provider)
	media.SendFilename = settings.Media.ContentDisposition

	router := utils.NewRouter()
	handlers.RegisterRoutes(router, media, handlers.NewPlayerHandler(settings.Media.DefaultMedia))

	srv := server.New(server.Config{
		Addr:              settings.Address(),
		ReadHeaderTimeout: settings.ReadHeaderTimeout(),
		IdleTimeout:       settings.IdleTimeout(),
		EnableH2C:         settings.Server.EnableH2C,
	}, router)

	log.Printf("[main] serving %s on %s (config %s)", store.Root(), settings.Address(), manager.Path())
	logger.Info("main.start",
		"media_root", store.Root(),
		"content_type", settings.Media.ContentType,
		"chunk_size", streaming.ClampChunkSize(settings.Streaming.ChunkSize),
		"h2c", settings.Server.EnableH2C,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndRun(ctx, srv, settings.ShutdownTimeout()); err != nil {
		return err
	}
	slog.Default().Info("main.stopped")
	return nil
}
