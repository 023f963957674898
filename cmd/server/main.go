package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/ephroom/internal/app"
	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "ephroom",
		Short:         "Ephemeral room relay",
		Long:          `ephroom lets a host mint a short-lived room and push messages to every guest connected to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, overrides)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default ./config.yaml or $EPHROOM_CONFIG_DEFAULT_PATH/config.yaml)")
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console or json)")
	flags.StringVar(&overrides.Store, "store", "", "store backend (redis or memory)")
	flags.StringVar(&overrides.RedisAddr, "redis-addr", "", "redis address")
	flags.DurationVar(&overrides.RoomTTL, "room-ttl", 0, "room lifetime without host keep-alive")
	flags.StringVar(&overrides.StaticDir, "static-dir", "", "directory with static client assets")

	return cmd
}

func serve(ctx context.Context, configPath string, overrides config.Config) error {
	bootstrap := log.New("info", "console")

	cfg, resolvedPath, err := config.Load(bootstrap, configPath)
	if err != nil {
		bootstrap.Error().Err(err).Str("path", resolvedPath).Msg("failed to load config")
		return err
	}
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		bootstrap.Error().Err(err).Msg("invalid config")
		return err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", resolvedPath).Str("store", cfg.Store).Dur("room_ttl", cfg.RoomTTL).Msg("config loaded")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to init app")
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting ephroom server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
