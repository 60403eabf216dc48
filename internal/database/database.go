package database

import (
	"fmt"

	"talentpassport/internal/config"
	"talentpassport/internal/logging"
	"talentpassport/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and runs migrations. The handle is returned to
// the caller rather than stashed in a package-level variable so every
// consumer receives it explicitly.
func Open(dbConf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	// Create our custom GORM logger
	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logger.Warn

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established successfully.")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

// Migrate creates the schema. GORM's AutoMigrate will create tables, columns
// and foreign keys; the composite history index is created separately since
// AutoMigrate will not.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.SkillProgress{},
		&models.AttemptRecord{},
		&models.XPEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	historyIndex := `CREATE INDEX IF NOT EXISTS idx_attempt_risk_history ON attempt_records (user_id, skill_name, created_at DESC);`
	if err := db.Exec(historyIndex).Error; err != nil {
		return fmt.Errorf("failed to create attempt history index: %w", err)
	}
	return nil
}
