// Package cli implements the fitquest command line using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fitquest",
	Short: "FitQuest gamification service",
	Long: `FitQuest turns logged workouts, meals and mental-health check-ins into
points, levels, streaks and achievements, and pushes changes to connected clients.

Running without a subcommand starts the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config/config.toml or config/config.json)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and the logger, then opens and migrates the database.
func bootstrap() (config.AppConfig, *gorm.DB, error) {
	cfg := config.LoadFrom(configPath)
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	db := config.InitDatabase(models.All()...)
	return cfg, db, nil
}

func newStore(cfg config.AppConfig, db *gorm.DB) gamification.Store {
	return store.NewGormStore(db, store.WithRetries(cfg.StoreUpdateRetries))
}
