// cmd/main.go is the application entry point.
// It loads configuration, builds the logger and dispatches to the
// serve and migrate commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "enrollment",
		Short: "Volunteer event enrollment and capacity admission service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.logger != nil {
				_ = app.logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ENROLLMENT_CONFIG"), "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initApp loads configuration and sets up the logger.
func initApp() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app = &App{cfg: cfg, logger: logger}
	app.logger.Debug("configuration loaded",
		zap.String("store", cfg.Store),
		zap.String("addr", cfg.Server.Addr),
	)
	return nil
}
