package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/recipeatlas/recipeatlas/internal/core/config"
	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/logging"
)

// Version is the release version reported by serve.
const Version = "0.1.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "recipeatlas",
	Short: "Recipe collection rule engine",
	Long: `recipeatlas compiles collection rules into recipe predicates and tracks
how close each collection is to being publishable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/"+config.DefaultConfigName+")")
	rootCmd.PersistentFlags().String("database-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves configuration for cmd and initialises logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	return cfg, nil
}

// openMigrated opens the database and refuses to continue while
// migrations are pending.
func openMigrated(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, fmt.Errorf("migration %s not applied - run 'recipeatlas migrate up' first", s.ID)
		}
	}
	return database, nil
}
