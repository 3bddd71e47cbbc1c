// Command server runs the plant rewards HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecoplant/plant-rewards/internal/app"
	"github.com/ecoplant/plant-rewards/internal/cache"
	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repository.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	var c cache.Cache
	if cfg.Database.Redis.Host != "" {
		rc, err := cache.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Database.Redis.Addr()).Msg("Failed to connect to Redis")
		}
		defer func() { _ = rc.Close() }()
		c = rc
	} else {
		log.Warn().Msg("Redis host not configured, leaderboard cache disabled")
	}

	a, err := app.New(cfg, db, c, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}
	if err := a.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap application")
	}
	if err := a.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start background workers")
	}

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", srv.Addr).Msg("HTTP server failed")
				stop()
			}
		}(srv)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("Server shutdown failed")
		}
	}
	a.Stop()
	log.Info().Msg("Server stopped")
}
