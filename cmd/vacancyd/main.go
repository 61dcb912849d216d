// Package main wires together the vacancy ingestion service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/api"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/clock/system"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/config"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/id/uuid"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/logging"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/metrics"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/pipeline"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region/filecache"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region/memcache"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region/rediscache"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/scheduler"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/headhunter"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/superjob"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/telegram"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/store/postgres"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"

	pubsubpublisher "github.com/ivnGl/hexlet-vacancy-analysis/internal/publisher/pubsub"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, err := postgres.NewVacancyStore(ctx, postgres.VacancyStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
	})
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer store.Close()

	client := httpclient.New(httpclient.Config{
		Timeout:     cfg.HTTPTimeout(),
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		MaxInFlight: int64(cfg.HTTP.MaxInFlight),
		UserAgent:   cfg.HTTP.UserAgent,
	}, logger.Named("httpclient"))

	regionCache, err := newRegionCache(ctx, cfg)
	if err != nil {
		logger.Fatal("region cache init failed", zap.Error(err))
	}
	resolver := region.NewResolver(regionCache, client, region.Config{
		HeadHunterAreasURL: cfg.Sources.HeadHunter.AreasURL,
		SuperJobRegionsURL: cfg.Sources.SuperJob.RegionsURL,
	}, logger.Named("region"))

	adapters := map[vacancy.Platform]vacancy.SourceAdapter{
		vacancy.PlatformHeadHunter: headhunter.New(client, headhunter.Config{
			BaseURL:   cfg.Sources.HeadHunter.BaseURL,
			UserAgent: cfg.Sources.HeadHunter.UserAgent,
		}, logger.Named("headhunter")),
		vacancy.PlatformSuperJob: superjob.New(client, superjob.Config{
			BaseURL: cfg.Sources.SuperJob.BaseURL,
			APIKey:  cfg.Sources.SuperJob.APIKey,
		}, logger.Named("superjob")),
		vacancy.PlatformTelegram: telegram.New(logger.Named("telegram")),
	}
	defaults := map[vacancy.Platform]vacancy.SearchParams{
		vacancy.PlatformHeadHunter: {
			Query:   cfg.Sources.HeadHunter.Query,
			Area:    cfg.Sources.HeadHunter.Area,
			PerPage: cfg.Sources.HeadHunter.PerPage,
		},
		vacancy.PlatformSuperJob: {
			Query:   cfg.Sources.SuperJob.Keyword,
			Area:    cfg.Sources.SuperJob.Town,
			PerPage: cfg.Sources.SuperJob.Count,
		},
	}

	var publisher vacancy.Publisher
	if cfg.PubSub.ProjectID != "" {
		pub, err := pubsubpublisher.Connect(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Warn("pubsub connect failed, reports will not be published", zap.Error(err))
		} else {
			publisher = pub
			defer func() {
				_ = pub.Close()
			}()
		}
	}

	pipe := pipeline.New(
		store,
		resolver,
		publisher,
		system.New(),
		uuid.New(),
		pipeline.Config{Topic: cfg.PubSub.TopicName},
		logger.Named("pipeline"),
	)

	apiServer := api.NewServer(pipe, store, adapters, defaults, store.Ping, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs := []scheduler.Job{
			{
				Adapter: adapters[vacancy.PlatformHeadHunter],
				Params:  defaults[vacancy.PlatformHeadHunter],
				Spec:    cfg.Scheduler.HeadHunterSpec,
			},
			{
				Adapter: adapters[vacancy.PlatformSuperJob],
				Params:  defaults[vacancy.PlatformSuperJob],
				Spec:    cfg.Scheduler.SuperJobSpec,
			},
		}
		sched = scheduler.New(pipe, jobs, cfg.Scheduler.RunOnStart, logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("scheduler start failed", zap.Error(err))
		}
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownSec)*time.Second,
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newRegionCache(ctx context.Context, cfg config.Config) (region.Cache, error) {
	switch cfg.Regions.CacheBackend {
	case "redis":
		ttl := time.Duration(cfg.Redis.TTLMinutes) * time.Minute
		return rediscache.NewFromURL(ctx, cfg.Redis.URL, ttl)
	case "memory":
		return memcache.New(), nil
	default:
		return filecache.New(cfg.Regions.CacheDir)
	}
}
