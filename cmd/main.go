package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/shared"
)

// envConfigPath overrides the default config.toml location.
const envConfigPath = "TUNEBOX_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv(envConfigPath)
	if configPath == "" {
		configPath = "config.toml"
	}

	config, err := shared.LoadConfigOrDefault(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	if err := shared.LoadEnv(config); err != nil {
		logger.Warn("failed to load environment", "error", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tunebox",
		Usage:    "Chat-bot playlist manager: HTTP API, Telegram bot and local console",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
