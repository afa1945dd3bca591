// Package main starts the sessiongate auth service: configuration, logging,
// the Postgres store, the auth service and its HTTP(S) server.
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

	"github.com/atinyakov/sessiongate/internal/config"
	"github.com/atinyakov/sessiongate/internal/db"
	"github.com/atinyakov/sessiongate/internal/logger"
	"github.com/atinyakov/sessiongate/internal/middleware"
	"github.com/atinyakov/sessiongate/internal/repository"
	"github.com/atinyakov/sessiongate/internal/server/handler/http"
	"github.com/atinyakov/sessiongate/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartSessionCleaner(ctx, postgresDB, options.CleanupInterval, zapLogger)

	var authRepo repository.AuthStore = repository.NewPostgresAuthRepository(postgresDB)
	if options.RedisAddr != "" {
		redisClient, err := db.InitRedis(ctx, options.RedisAddr)
		if err != nil {
			zapLogger.Fatal("cannot init redis", zap.Error(err))
		}
		defer redisClient.Close()
		authRepo = repository.NewCachedAuthRepository(authRepo, redisClient, options.SessionCacheTTL, zapLogger)
		zapLogger.Info("session cache enabled", zap.Duration("max_ttl", options.SessionCacheTTL))
	}
	authService := service.NewAuthService(authRepo, service.WithTokenTTL(options.TokenTTL))
	authHandler := &http.AuthHandler{AuthService: authService, Logger: zapLogger}
	limiter := middleware.NewRateLimiter(ctx, rate.Limit(options.LoginRate), options.LoginBurst)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           http.NewRouter(authHandler, limiter, zapLogger, http.WithTrustedProxy(options.TrustProxy)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCert != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("shutdown", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
	if useTLS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
