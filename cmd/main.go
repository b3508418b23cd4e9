package main

import (
	"context"
	"flag"

	"github.com/signet-labs/signet/internal/app"
	"github.com/signet-labs/signet/internal/config"
	"github.com/signet-labs/signet/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 日志就绪之前的错误只能 panic
	initLogger(cfg)
	defer logger.Sync()

	logger.Info("starting service",
		"service", cfg.Service.Name,
		"env", cfg.Service.Env,
		"addr", cfg.HTTP.Addr(),
	)

	application := app.New(cfg)
	if err := application.Start(context.Background()); err != nil {
		logger.Fatal("failed to start application", "error", err)
	}

	application.WaitForShutdown()
	logger.Info("service stopped")
}

func initLogger(cfg *config.Config) {
	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Service.Name,
		Environment: cfg.Service.Env,
	}); err != nil {
		panic("failed to init logger: " + err.Error())
	}
}
