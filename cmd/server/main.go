package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/mission-orders/internal/config"
	"github.com/garyjia/mission-orders/internal/container"
	httpserver "github.com/garyjia/mission-orders/internal/interfaces/http"
	"github.com/garyjia/mission-orders/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
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
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting mission order service",
		zap.String("version", httpserver.Version),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	repos := c.Repositories()
	services := c.Services()

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		httpserver.AuthConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.Issuer,
		},
		httpserver.Services{
			Missions:      services.Missions,
			Engine:        c.WorkflowEngine(),
			Projects:      services.Projects,
			Notifications: services.Notifications,
			Documents:     services.Documents,
			Users:         repos.Users,
			Roles:         repos.Roles,
		},
		utils.NewKVLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		watchHealth(gctx, c, logger, time.Minute)
		return nil
	})

	return g.Wait()
}

// watchHealth logs unhealthy components until ctx is cancelled
func watchHealth(ctx context.Context, c *container.Container, logger *zap.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down server...")
			return
		case <-ticker.C:
			status := c.Health(ctx)
			if status.Overall {
				continue
			}
			for name, component := range status.Components {
				if !component.Healthy {
					logger.Error("Component unhealthy",
						zap.String("component", name),
						zap.String("message", component.Message))
				}
			}
		}
	}
}
