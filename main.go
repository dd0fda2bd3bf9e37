package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/camden-git/signabackend/config"
	"github.com/camden-git/signabackend/database"
	"github.com/camden-git/signabackend/handlers"
	"github.com/camden-git/signabackend/metrics"
	"github.com/camden-git/signabackend/realtime"
	"github.com/camden-git/signabackend/repository"
	"github.com/camden-git/signabackend/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger()

	db, err := database.InitGormDB(cfg.DatabasePath, database.Options{LogLevel: cfg.GormLogLevel})
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get database handle", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(sqlDB, "signa"),
	)
	m := metrics.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger, cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	uow := repository.NewGormUnitOfWork(db)
	passwords := services.NewPasswordService(cfg.BcryptCost, cfg.PasswordLength)
	tokens := services.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL, cfg.JWTIssuer)
	authService := services.NewAuthService(uow, passwords, tokens, logger, m)
	markService := services.NewMarkService(uow, passwords, hub, logger, m)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(authService, logger),
		Marks:          handlers.NewMarkHandler(markService, logger),
		Tokens:         tokens,
		Events:         hub.ServeWS,
		Gatherer:       registry,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment, "database", cfg.DatabasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
