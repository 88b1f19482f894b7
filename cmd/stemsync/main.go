package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stemsync/stemsync/internal/audio"
	"github.com/stemsync/stemsync/internal/config"
	"github.com/stemsync/stemsync/internal/engine"
	"github.com/stemsync/stemsync/internal/logger"
	"github.com/stemsync/stemsync/internal/server"
	"github.com/stemsync/stemsync/internal/stream"
)

var rootCmd = &cobra.Command{
	Use:   "stemsync",
	Short: "stemsync plays multi-stem audio in sample-accurate sync.",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playback engine and HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      logger.Level(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	})
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("stemsync starting up",
		logger.Int("port", cfg.Port),
		logger.Duration("clock_poll", cfg.ClockPollInterval),
		logger.Int("clock_max_attempts", cfg.ClockMaxAttempts))

	dec := audio.NewDecoder(cfg.FFmpegPath, cfg.FFprobePath)
	graph := engine.NewRenderGraph()
	session := engine.NewLoggedSession()

	coord := engine.NewCoordinator(graph, session, dec, engine.Options{
		PollInterval: cfg.ClockPollInterval,
		MaxAttempts:  cfg.ClockMaxAttempts,
		ScheduleLead: cfg.ScheduleLead,
	})

	// Fan the mixed frames out to all stream listeners.
	broadcaster := stream.NewBroadcaster(cfg.ListenerDepth)
	go broadcaster.Run(ctx, graph.Frames())

	srv := server.New(cfg, coord, broadcaster)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", logger.ErrorField(err))
	}

	if err := coord.Close(); err != nil {
		logger.Error("engine shutdown", logger.ErrorField(err))
	}
	logger.Info("stemsync stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
