package main

import (
	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/pkg/log"
	"github.com/refurbd/renovation-planner/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Migrating the db")
		defer zap.S().Info("Db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		return migrate(cfg, db, s)
	},
}

// migrate prefers the goose folder when one is configured and falls
// back to the gorm auto-migration, which is what the sqlite test setup
// uses.
func migrate(cfg *config.Config, db *gorm.DB, s store.Store) error {
	if cfg.Service.MigrationFolder != "" {
		return migrations.MigrateStore(db, cfg.Service.MigrationFolder)
	}
	return s.InitialMigration()
}
