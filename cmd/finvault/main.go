package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finvault/internal/api"
	"finvault/internal/cli"
	apphttp "finvault/internal/http"
	"finvault/internal/log"
	"finvault/internal/session"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger until the configured one exists.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentApp)

	store, closeStore := cli.InitSessionStore(logger, cfg)
	publisher := cli.InitPublisher(logger, cfg)

	retry := api.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.BackendMaxAttempts
	retry.BaseDelay = cfg.BackendRetryDelay

	backend := api.NewClient(api.Options{
		AuthBaseURL:         cfg.AuthAPIURL,
		TransactionsBaseURL: cfg.TransactionsAPIURL,
		Timeout:             cfg.BackendTimeout,
		Retry:               retry,
		QueryParams:         cfg.TransactionsQueryParams,
		Logger:              logger,
	})

	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.SessionCookieName,
		MaxAge:     cfg.SessionMaxAge,
		Secure:     cfg.CookieSecure,
	}, logger)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Backend:            backend,
		Sessions:           sessions,
		Store:              store,
		Publisher:          publisher,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CookieSecure:       cfg.CookieSecure,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := publisher.Close(); err != nil {
			logger.Warn("Event publisher close error", log.FieldError, err)
		}
		if err := closeStore(); err != nil {
			logger.Warn("Session store close error", log.FieldError, err)
		}
	})

	logger.Info("Starting finvault server",
		"port", cfg.Port,
		"auth_api", cfg.AuthAPIURL,
		"transactions_api", cfg.TransactionsAPIURL,
		"session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
