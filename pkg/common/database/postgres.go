package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/common/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenPostgres connects the run ledger and report rollups database.
func OpenPostgres(cfg config.PostgresConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.WithError(err).Error("Failed to connect to PostgreSQL")
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	log.WithFields(logrus.Fields{"host": cfg.Host, "db": cfg.DB}).Info("Connected to PostgreSQL")
	return db, nil
}

func ClosePostgres(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
