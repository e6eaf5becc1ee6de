package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vantagefeed/postsync/internal/config"
	"github.com/vantagefeed/postsync/internal/logging"
	"github.com/vantagefeed/postsync/internal/metrics"
	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
	"github.com/vantagefeed/postsync/internal/platform/threads"
	"github.com/vantagefeed/postsync/internal/platform/twitter"
	"github.com/vantagefeed/postsync/internal/retry"
	"github.com/vantagefeed/postsync/internal/scoring"
	"github.com/vantagefeed/postsync/internal/store"
	"github.com/vantagefeed/postsync/internal/syncer"
)

// appContext wires configuration, logging, storage, metrics, and the
// platform adapters. Commands call build once; everything downstream takes
// dependencies explicitly.
type appContext struct {
	configPath *string

	cfg *config.Config
	log zerolog.Logger
}

func newAppContext(configPath *string) *appContext {
	return &appContext{configPath: configPath}
}

func (a *appContext) ensureConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(*a.configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logger)
	return cfg, nil
}

// app is one fully wired pipeline instance. Close releases the store.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *store.Store
	service *syncer.Service
}

func (a *app) Close() error { return a.store.Close() }

func (a *appContext) build() (*app, error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	recorder, err := a.setupMetrics(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.HTTP.RetryAttempts,
		BaseDelay:   cfg.HTTP.RetryBaseDelay,
	}

	twitterClient, err := twitter.NewClient(twitter.Config{
		Policy:   policy,
		MaxPages: cfg.Sync.MaxPages,
		UsageHook: func(success bool) {
			recorder.IncRequest(string(models.PlatformTwitter), success)
		},
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("twitter adapter: %w", err)
	}

	threadsClient := threads.NewClient(threads.Config{
		Timeout:  cfg.HTTP.Timeout,
		Policy:   policy,
		MaxPages: cfg.Sync.MaxPages,
		UsageHook: func(success bool) {
			recorder.IncRequest(string(models.PlatformThreads), success)
		},
	})

	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: twitterClient,
		models.PlatformThreads: threadsClient,
	}

	service := syncer.New(st, fetchers, scoring.Score, recorder, a.log, cfg.Sync)

	return &app{cfg: cfg, log: a.log, store: st, service: service}, nil
}

func (a *appContext) setupMetrics(cfg *config.Config) (metrics.Recorder, error) {
	if !cfg.Metrics.Enabled {
		return metrics.Noop(), nil
	}
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
			a.log.Error().Err(err).Str("listen", cfg.Metrics.Listen).Msg("metrics listener stopped")
		}
	}()
	a.log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics listener started")
	return recorder, nil
}
