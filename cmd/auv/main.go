// Command auv runs the vehicle's onboard communication core: the radio link
// to the base station, the motor command queue, and the mission supervisor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DaPhysikist/Nautilus/cmd/auv/app"
)

func main() {
	configPath := flag.String("c", "", "Path to the configuration file")
	flag.Parse()

	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	if err := run(*configPath, &logLevel, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) error {
	if configPath == "" {
		flag.Usage()
		return fmt.Errorf("a configuration file is required, pass it with -c")
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration file %s: %w", configPath, err)
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx, config, logger)
}
