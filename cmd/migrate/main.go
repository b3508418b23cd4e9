// Package main 提供数据库迁移命令行工具
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/signet-labs/signet/internal/config"
	"github.com/signet-labs/signet/migrations"
	"github.com/signet-labs/signet/pkg/logger"
	"github.com/signet-labs/signet/pkg/migrate"
)

func main() {
	var (
		command    string
		configPath string
		dsn        string
	)
	flag.StringVar(&command, "cmd", "up", "command: up, down, version, goto <n>")
	flag.StringVar(&configPath, "config", "config/config.yaml", "配置文件路径")
	flag.StringVar(&dsn, "dsn", "", "数据库 DSN，非空时覆盖配置文件")
	flag.Parse()

	if err := logger.Init(&logger.Config{
		Level:       "info",
		Format:      "console",
		ServiceName: "signet-migrate",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if dsn == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Fatal("load config failed", "error", err)
		}
		dsn = cfg.Postgres.DSN()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("connect database failed", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("unwrap sql db failed", "error", err)
	}
	defer sqlDB.Close()

	m := migrate.NewMigrator(sqlDB, "signet", logger.L())

	switch command {
	case "up":
		if err := m.AutoMigrate(migrations.FS, "."); err != nil {
			logger.Fatal("migration up failed", "error", err)
		}

	case "down":
		if err := m.Rollback(migrations.FS, "."); err != nil {
			logger.Fatal("migration down failed", "error", err)
		}

	case "version":
		version, dirty, err := m.GetVersion(migrations.FS, ".")
		if err != nil {
			logger.Fatal("get version failed", "error", err)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)

	case "goto":
		target, err := strconv.ParseUint(flag.Arg(0), 10, 32)
		if err != nil {
			logger.Fatal("goto requires a numeric version", "arg", flag.Arg(0))
		}
		if err := m.MigrateToVersion(migrations.FS, ".", uint(target)); err != nil {
			logger.Fatal("migration goto failed", "error", err)
		}

	default:
		logger.Fatal("unknown command", "command", command)
	}
}
