package main

import (
	"os"

	"github.com/ppd-pricemap/internal/config"
	"github.com/ppd-pricemap/internal/logging"
	"github.com/ppd-pricemap/internal/web"
)

func main() {
	config.LoadEnv()
	logger := logging.New()

	cfg := web.Config{
		Host:    config.GetEnv("WEB_HOST", "localhost"),
		Port:    config.GetEnvInt("WEB_PORT", 8080),
		DataDir: config.GetEnv("OUTPUT_DIR", "public/data"),
	}

	server, err := web.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
