package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/cost"
	"github.com/kondohub/kondo-scraper/internal/engine"
	"github.com/kondohub/kondo-scraper/internal/media"
	"github.com/kondohub/kondo-scraper/internal/metrics"
	"github.com/kondohub/kondo-scraper/internal/platform"
	"github.com/kondohub/kondo-scraper/internal/scraper"
	"github.com/kondohub/kondo-scraper/internal/sitecache"
	"github.com/kondohub/kondo-scraper/internal/storage"
	"github.com/kondohub/kondo-scraper/internal/store"
)

// pipelineEnv holds the store, fetch chain, engine registry and scraper
// needed by the scrape/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Chain    *platform.Chain
	Registry *engine.Registry
	Scraper  *scraper.Scraper
	Metrics  *prometheus.Registry
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline validates configuration for mode and wires every scraper
// collaborator. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{Store: st}

	fail := func(err error) (*pipelineEnv, error) {
		env.Close()
		return nil, err
	}

	env.Chain, err = platform.New(cfg)
	if err != nil {
		return fail(err)
	}
	zap.L().Info("fetch providers configured", zap.String("chain", env.Chain.Name()), zap.Bool("rendering", env.Chain.SupportsRendering()))

	env.Registry, err = engine.NewFromConfig(cfg, env.Chain)
	if err != nil {
		return fail(err)
	}

	cache, err := sitecache.New(cfg.Cache)
	if err != nil {
		return fail(err)
	}

	env.Metrics = prometheus.NewRegistry()
	env.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	timeout := time.Duration(cfg.Scrape.RequestTimeoutSecs) * time.Second
	downloader := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, storage.NewHTTPClient(storage.HTTPOptions{
		UserAgent: cfg.Local.UserAgent,
		Timeout:   timeout,
	}))
	gate := &media.Gate{
		MinWidth:     cfg.Media.MinWidth,
		MinHeight:    cfg.Media.MinHeight,
		MinRelevance: cfg.Media.MinRelevanceScore,
		Prober:       media.NewDimensionProber(&http.Client{Timeout: 15 * time.Second}, cfg.Media.ProbeBytes, cfg.Local.UserAgent),
	}

	env.Scraper, err = scraper.New(cfg, scraper.Deps{
		Store:      st,
		Selector:   engine.NewSelector(env.Registry, env.Chain),
		Gate:       gate,
		Downloader: downloader,
		Cache:      cache,
		Head:       env.Chain,
		Metrics:    metrics.New(env.Metrics),
		Costs:      cost.NewCalculator(cfg.Pricing),
	})
	if err != nil {
		return fail(err)
	}
	return env, nil
}
