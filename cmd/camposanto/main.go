package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/mlodari/camposanto/internal/cli"
	"github.com/mlodari/camposanto/internal/config"
	"github.com/mlodari/camposanto/internal/logging"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("error initializing application: %v", err)
	}

	app.Run(context.Background())
}
