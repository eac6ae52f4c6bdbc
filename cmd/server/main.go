package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/config"
	"github.com/garyjia/travel-reimbursement/internal/container"
	httpapi "github.com/garyjia/travel-reimbursement/internal/interfaces/http"
	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "reimbursement",
		Short:         "Travel and expense reimbursement service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/config.yaml",
		"Path to the YAML configuration file")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newBookCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(cfg.LoggerSettings())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// openContainer builds and initializes the container without workers.
// Callers must Close it.
func openContainer(ctx context.Context) (*container.Container, *zap.Logger, error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Init(ctx); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return c, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting travel reimbursement service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	services := c.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, httpapi.Services{
		Reports:   services.Reports,
		Workflow:  c.WorkflowEngine(),
		Countries: services.Countries,
		Projects:  services.Projects,
		Receipts:  services.Receipts,
	}, container.NewLoggerAdapter(logger))

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Server exited successfully")
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, logger, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger.Info("Database is up to date")
			return c.Close()
		},
	}
}
