// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gormstore "github.com/macromojo/macromojo/internal/infrastructure/persistence/gorm"
)

// InMemory is the path of a private in-memory database
const InMemory = ":memory:"

// SetupDatabase opens the SQLite database at dbPath and creates the schema
func SetupDatabase(dbPath string, log *zap.Logger, logLevel string) (*gorm.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         gormstore.NewLogger(log, logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One connection: SQLite serializes writers, and each :memory: connection
	// would otherwise see its own empty database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormstore.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
