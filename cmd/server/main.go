// Package main initializes and starts the crowdfunding API server, setting up
// configuration, logging, the database, repositories, services and handlers.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/auth"
	"github.com/atinyakov/crowdfund/internal/config"
	"github.com/atinyakov/crowdfund/internal/db"
	"github.com/atinyakov/crowdfund/internal/logger"
	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/repository"
	"github.com/atinyakov/crowdfund/internal/server/handler/http"
	"github.com/atinyakov/crowdfund/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Rewards edited down to zero stock stop being offered.
	db.StartRewardSweeper(ctx, postgresDB, time.Minute, zapLogger)

	profileRepo := repository.NewPostgresProfileRepository(postgresDB)
	projectRepo := repository.NewPostgresProjectRepository(postgresDB)
	rewardRepo := repository.NewPostgresRewardRepository(postgresDB)
	contribRepo := repository.NewPostgresContributionRepository(postgresDB)

	tokens := auth.NewJWTService(options.AccessSecret, options.RefreshSecret, options.AccessTTL(), options.RefreshTTL())

	authService := service.NewAuthService(profileRepo, tokens)
	projectService := service.NewProjectService(projectRepo)
	rewardService := service.NewRewardService(rewardRepo, projectService)
	contribService := service.NewContributionService(contribRepo, rewardRepo, projectService)

	router := http.NewRouter(http.Handlers{
		Auth:          &http.AuthHandler{AuthService: authService, Logger: zapLogger},
		Projects:      &http.ProjectHandler{ProjectService: projectService, Logger: zapLogger},
		Rewards:       &http.RewardHandler{RewardService: rewardService, Logger: zapLogger},
		Contributions: &http.ContributionHandler{ContributionService: contribService, Logger: zapLogger},
	}, tokens, middleware.NewRateLimiter(options.LoginRPS, options.LoginBurst, zapLogger), zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
