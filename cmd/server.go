//go:build !integration

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bitbucket.org/crgw/rental-desk/internal/config"
	"bitbucket.org/crgw/rental-desk/internal/desk"
	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"bitbucket.org/crgw/rental-desk/internal/tools/graphql"
	"bitbucket.org/crgw/rental-desk/internal/tools/logging"
	"bitbucket.org/crgw/rental-desk/internal/tools/redisfactory"
	"bitbucket.org/crgw/rental-desk/internal/web"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func serverApp(httpServer *http.Server, registry *desk.Registry, logger *zerolog.Logger) int {
	shutdown := false
	done := make(chan error, 1)
	stop := make(chan os.Signal, 1)
	go func() {
		logger.
			Info().
			Msg("Listening on address " + httpServer.Addr)
		done <- httpServer.ListenAndServe()
	}()
	go func() {
		// Wait for stop
		<-stop
		shutdown = true
		logger.Info().Msg("Shutting down server...")
		registry.Shutdown(context.Background())
		_ = httpServer.Shutdown(context.Background())
	}()

	// Notify stop channel if SIGINT or SIGTERM is received
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	err := <-done
	if err != nil && !shutdown {
		logger.
			Error().
			Err(err).
			Msg("Server failed")
		return 1
	}
	return 0
}

func run() int {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logging.New(cfg.LogLevel)

	redisFactory, err := redisfactory.New(cfg.CredentialsRedisURI, cfg.LocksRedisURI)
	if err != nil {
		log.Error().Err(err).Msg("Invalid redis configuration")
		return 1
	}
	defer redisFactory.Close()

	remote := graphql.NewClient(cfg.GraphqlURL, log,
		graphql.WithTimeout(cfg.RemoteTimeout()),
		graphql.WithQueryMethod(cfg.GraphqlQueryMethod),
	)

	registry := desk.NewRegistry(desk.Dependencies{
		Remote:            remote,
		Pricing:           pricing.NewEngine(cfg.DailyRate),
		RedirectDelay:     cfg.SuccessRedirectDelay(),
		CredentialsClient: redisFactory.CredentialsClient(),
		LocksClient:       redisFactory.LocksClient(),
		LockTTL:           cfg.SubmissionLockTTL(),
		SlowThreshold:     cfg.SlowLogThreshold(),
	}, log)

	appRouter, err := web.SetupRouter(log, cfg, registry)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set up router")
		return 1
	}

	var host string
	if os.Getenv("TEST") == "true" {
		host = "localhost"
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", host, cfg.Port),
		Handler: appRouter,
	}

	return serverApp(httpServer, registry, log)
}

func main() {
	os.Exit(run())
}
