// Package repository contains the storage layer for the HR Assistant API
package repository

import (
	"fmt"
	"regexp"

	"github.com/nsvirk/hrassistapi/internal/config"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ConnectPostgres connects to Postgres, creates the schema and migrates the tables
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	schema := cfg.PostgresSchema
	if !schemaNamePattern.MatchString(schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q", schema)
	}

	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	postgresDSN := cfg.PostgresDsn + " search_path=" + schema + ",public"
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	zaplogger.Info("  * connected")

	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + schema).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	zaplogger.Info("  * migrating schema: \"" + schema + "\"")

	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.SessionsTableName, &models.SessionModel{}},
		{models.SessionMetricsTableName, &models.SessionMetricModel{}},
		{models.RememberMeTokensTableName, &models.RememberMeTokenModel{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		if err := db.AutoMigrate(table.model); err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err: %w", table.name, err)
		}
		zaplogger.Info("    - \"" + table.name + "\"")
	}
	return nil
}
