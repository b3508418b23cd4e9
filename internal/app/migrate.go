package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/signet-labs/signet/migrations"
	"github.com/signet-labs/signet/pkg/logger"
	"github.com/signet-labs/signet/pkg/migrate"
)

// runMigrations 应用内嵌的 SQL 迁移
func runMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	return migrate.NewMigrator(sqlDB, "signet", logger.L()).AutoMigrate(migrations.FS, ".")
}
