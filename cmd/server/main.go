package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/config"
	"github.com/garyjia/purchase-requisition/internal/container"
	httpapi "github.com/garyjia/purchase-requisition/internal/interfaces/http"
	"github.com/garyjia/purchase-requisition/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting purchase requisition service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Build and start the dependency container
	c, err := container.NewContainer(container.FromAppConfig(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	// HTTP server
	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		httpapi.AuthConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		},
		httpapi.Dependencies{
			Requisitions: c.Services().Requisition,
			Projects:     c.Services().Project,
			Users:        c.Repositories().User,
			Health:       c,
		},
		utils.NewKVLogger(logger),
	)

	// Start blocks until a signal arrives or the listener fails
	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
		return
	}

	logger.Info("Shutdown complete")
}
