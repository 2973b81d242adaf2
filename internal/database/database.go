package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hostwarden/backend/internal/models"
)

// Connect opens the SQLite database at dbPath with WAL journaling and a busy
// timeout so concurrent requests wait for row locks instead of failing.
func Connect(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withPragmas(dbPath)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table used by the panel backend.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.ResellerProps{},
		&models.Domain{},
		&models.DomainAlias{},
		&models.Subdomain{},
		&models.SubdomainAlias{},
		&models.PhpIni{},
		&models.LoginAttempt{},
		&models.Plugin{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000"
}
