package main

import (
	"os"

	"permit_flow_app_go/config"
	"permit_flow_app_go/db"
	"permit_flow_app_go/logging"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "permitflow",
		Short:         "Construction permit case engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		logging.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the log settings
func loadConfig() *config.Config {
	cfg := config.Load()
	logging.Configure(cfg.Environment, cfg.LogLevel)
	return cfg
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := db.Initialize(cfg); err != nil {
				return err
			}
			defer db.Close()

			return db.AutoMigrate(db.DB)
		},
	}
}
