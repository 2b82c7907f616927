package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	shared.ConfigureLogger(logger, config.Logging)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: "config.toml",
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "audioquery",
		Usage:    "Query and edit a local audio library through the media query plugin",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
