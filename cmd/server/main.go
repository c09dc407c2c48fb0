package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/teardown/internal/api"
	"github.com/iconidentify/teardown/internal/api/handler"
	"github.com/iconidentify/teardown/internal/config"
	"github.com/iconidentify/teardown/internal/repository"
	"github.com/iconidentify/teardown/internal/service"
	"github.com/iconidentify/teardown/pkg/crypto"
	"github.com/iconidentify/teardown/pkg/provider"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("teardown %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting teardown",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	instruction, err := cfg.Analysis.Instruction()
	if err != nil {
		logger.Error("failed to load instruction", "error", err)
		os.Exit(1)
	}

	// Settings store
	var settingsRepo repository.SettingsRepository
	switch cfg.Settings.Store {
	case "memory":
		settingsRepo = repository.NewInMemorySettingsRepository()
		logger.Warn("settings are kept in memory and will be lost on restart")
	default:
		sqliteRepo, err := repository.NewSQLiteSettingsRepository(cfg.Settings.DBPath)
		if err != nil {
			logger.Error("failed to open settings database", "path", cfg.Settings.DBPath, "error", err)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		settingsRepo = sqliteRepo
	}

	var box *crypto.Box
	if cfg.Settings.Secret != "" {
		box, err = crypto.NewBox(cfg.Settings.Secret)
		if err != nil {
			logger.Error("failed to init settings encryption", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("SETTINGS_SECRET not set, provider API key is stored unencrypted")
	}

	// Initialize services
	client := provider.NewClient(provider.ClientOptions{Timeout: cfg.Provider.Timeout}, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, box, cfg.Provider.DefaultProvider(), logger)
	analysisSvc := service.NewAnalysisService(
		client,
		settingsSvc,
		repository.NewInMemoryAnalysisRepository(cfg.Analysis.HistorySize),
		nil,
		instruction,
		logger,
	)

	// Initialize handlers
	analysisHandler := handler.NewAnalysisHandler(analysisSvc, cfg.Upload.MaxVideoSize, logger)
	settingsHandler := handler.NewSettingsHandler(settingsSvc, logger)
	healthHandler := handler.NewHealthHandler(settingsSvc, analysisSvc)
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(analysisHandler, settingsHandler, healthHandler, uiHandler, cfg.Server.APIKey, logger)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			"addr", srv.Addr,
			"default_provider", cfg.Provider.DefaultProvider(),
			"settings_store", cfg.Settings.Store,
			"auth", cfg.Server.APIKey != "",
		)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
