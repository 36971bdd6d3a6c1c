package database

import (
	"fmt"
	"time"

	"go-stock-ledger/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by the production connection and the test helper so
// both translate driver errors (unique violations) the same way.
func GormConfig(log logrus.FieldLogger, slowThreshold time.Duration, level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log,
			logger.Config{
				SlowThreshold:             slowThreshold,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		PrepareStmt:    false, // Disables GORM-level prepared statements
		TranslateError: true,
	}
}

func ConnectDB(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseURL,
		PreferSimpleProtocol: true, // Disables implicit prepared statements for pgbouncer transaction mode
	}), GormConfig(log, cfg.DBSlowThreshold, logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnLifetime)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.WithError(err).Warn("db connected but failed to install otelgorm plugin")
	}

	log.Info("Database connection established")
	return db, nil
}
