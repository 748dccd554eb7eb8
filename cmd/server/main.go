package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/centavo-app/fx-data-client/internal/application/service"
	"github.com/centavo-app/fx-data-client/internal/config"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/api"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/cache"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/handler"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/logger"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/middleware"
	"github.com/dgraph-io/badger/v3"
	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	log.Info("starting FX data service")

	dbPath := filepath.Join(cfg.DataDir, "fxcache")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create cache directory")
	}

	badgerOpts := badger.DefaultOptions(dbPath)
	badgerOpts.Logger = nil
	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		log.WithError(err).Fatal("failed to open cache database")
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.WithError(err).Error("error closing cache database")
		}
	}()

	respCache := cache.NewResponseCache(cache.NewBadgerStore(badgerDB), log)

	retry := api.RetryPolicy{
		MaxAttempts: cfg.MaxRetryAttempts,
		BaseDelay:   cfg.BaseRetryDelay,
		MaxDelay:    cfg.MaxRetryDelay,
	}
	client := api.NewClient(cfg.BaseURL, nil, config.Token, retry, log)
	catalog := api.Catalog{LatestTTL: cfg.LatestTTL, SymbolsTTL: cfg.SymbolsTTL}

	rates := service.NewRateService(cfg.Enabled, catalog, client, respCache, config.Token, log)
	conversion := service.NewConversionService(rates, log)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(log))
	handler.NewRatesHandler(rates, conversion, respCache, log).RegisterRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := startSweep(respCache, cfg.SweepInterval, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start cache sweep")
	}

	server := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		log.WithField("addr", cfg.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.WithError(err).Error("scheduler shutdown failed")
	}
}

// startSweep schedules the periodic expired-entry sweep over both cache
// tiers.
func startSweep(respCache *cache.ResponseCache, interval time.Duration, log logrus.FieldLogger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	job := func() {
		removed, err := respCache.ClearExpired()
		if err != nil {
			log.WithError(err).Error("cache sweep failed")
			return
		}
		if removed > 0 {
			log.WithField("removed", removed).Info("cache sweep removed expired entries")
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
