// Package commands implements the kaasync CLI commands.
package commands

import (
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a13xperi/kaa-notion-backend-sub005/config"
	"github.com/a13xperi/kaa-notion-backend-sub005/db"
	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/logger"
)

// loadRuntime resolves configuration and builds the logger shared by every
// command. The --config flag bypasses file discovery.
func loadRuntime(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	log, err := logger.New(jsonLogs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize logger")
	}

	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, log, nil
}

// openDatabase opens the job database and applies pending migrations.
func openDatabase(cfg *config.Config, log *zap.SugaredLogger) (*sql.DB, error) {
	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Migrate(database, log); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return database, nil
}
