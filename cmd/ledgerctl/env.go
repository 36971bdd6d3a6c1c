package main

import (
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/config"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// connect loads the configuration and opens the migrated database.
func connect() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, envLoaded := config.Load()
	log := logger.New(cfg.LogLevel)
	if !envLoaded {
		log.Debug(".env file not found, using process environment")
	}

	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}
