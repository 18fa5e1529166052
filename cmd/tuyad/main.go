// Command tuyad runs a single Pioneer WYT mini-split's protocol engine
// against one device binding, with no packaging or service-manager
// integration beyond a plain signal-driven main loop (those are out of
// scope per the embedding host's concerns, not this module's).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/signal15/tuya-minisplit-hubitat/controller"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/config"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/network/tcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to the device binding config JSON")
	logLevel := pflag.StringP("log-level", "l", "info", "zerolog level (debug, info, warn, error)")
	pflag.Parse()

	if *configPath == "" {
		return fmt.Errorf("--config is required")
	}

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", *logLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		return err
	}

	eng := controller.New(cfg, tcp.NetDialer{}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("connect to %s:%d: %w", cfg.IP, cfg.Port, err)
	}
	logger.Info().Str("ip", cfg.IP).Int("port", cfg.Port).Str("protocol", cfg.Protocol.String()).Msg("connected")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return eng.Disconnect()
}
