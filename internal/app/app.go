// Package app is the composition root shared by the topicdex server and the
// topicdexctl CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/config"
	dbRedis "github.com/kailas-cloud/topicdex/internal/db/redis"
	"github.com/kailas-cloud/topicdex/internal/db/solr"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
	"github.com/kailas-cloud/topicdex/internal/entity/corpus"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/metrics"
	"github.com/kailas-cloud/topicdex/internal/repository/betacache"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
	"github.com/kailas-cloud/topicdex/internal/transport/inferencer"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	queryuc "github.com/kailas-cloud/topicdex/internal/usecase/query"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

// App holds the wired services.
type App struct {
	Engine    *solr.Client
	Cache     *dbRedis.Store // nil when the beta cache is disabled
	Registry  *registry.Repo
	Schema    *schemauc.Service
	Indexing  *indexinguc.Service
	Queries   *queryuc.Service
	Health    *healthuc.Service
	Inference *inferencer.Client // nil without inferencer.url
	Regions   *region.Table
}

// New connects to the engine (and the cache when enabled), makes sure the
// registry collection exists and wires every service.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterServiceMetrics()

	engine, err := solr.NewClient(solr.Config{
		URL:       cfg.Engine.URL,
		ConfigSet: cfg.Engine.ConfigSet,
		NumShards: cfg.Engine.NumShards,
		Timeout:   time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		RateLimit: cfg.Engine.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}
	if err := engine.WaitForReady(ctx, time.Duration(cfg.Engine.ReadinessTimeout)*time.Second); err != nil {
		return nil, fmt.Errorf("engine not ready: %w", err)
	}
	logger.Info("Connected to search engine", zap.String("url", cfg.Engine.URL))

	a := &App{Engine: engine}

	a.Registry = registry.New(engine, cfg.Engine.RegistryCollection)
	if err := a.Registry.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	// Without a region table every continent filter matches all documents.
	if cfg.RegionsFile != "" {
		regions, err := region.Load(cfg.RegionsFile)
		if err != nil {
			return nil, fmt.Errorf("load regions: %w", err)
		}
		a.Regions = regions
	}

	if cfg.Cache.Enabled {
		// valkey and redis both speak RESP; rueidis serves either driver.
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Cache.Addrs,
			Password:    cfg.Cache.Password,
			Standalone:  cfg.Cache.Standalone,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		a.Cache = store
		logger.Info("Connected to beta cache",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	if cfg.Inferencer.URL != "" {
		a.Inference, err = inferencer.New(inferencer.Config{
			URL:         cfg.Inferencer.URL,
			Timeout:     time.Duration(cfg.Inferencer.TimeoutSec) * time.Second,
			ThetaBudget: cfg.Indexing.ThetaBudget,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create inference client: %w", err)
		}
	}

	a.wire(cfg, logger)
	return a, nil
}

// wire builds the use cases. Optional collaborators are handed over as nil
// interfaces, never as typed nil pointers.
func (a *App) wire(cfg config.Config, logger *zap.Logger) {
	var inf domain.Inferencer
	var infCheck healthuc.InferenceChecker
	if a.Inference != nil {
		inf = a.Inference
		infCheck = a.Inference
	}

	a.Queries = queryuc.New(a.Engine, a.Registry, inf, queryuc.Config{
		NoMetaFields: cfg.Indexing.NoMetaFields,
		Regions:      a.Regions,
	}, logger)

	var purger indexinguc.Purger
	var cachePing healthuc.Pinger
	if a.Cache != nil {
		cached := betacache.New(a.Queries, a.Cache,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.BetaCacheTotal, logger)
		a.Queries.WithBetaLookup(cached)
		purger = cached
		cachePing = a.Cache
	}

	a.Schema = schemauc.New(a.Engine, a.Registry, schemauc.FieldTypes{
		Vector:      cfg.Engine.VectorFieldType,
		FloatVector: cfg.Engine.FloatVectorFieldType,
	}, logger).
		WithBatchSize(cfg.Engine.BatchSize).
		WithRegistryCollection(cfg.Engine.RegistryCollection)

	a.Indexing = indexinguc.New(a.Engine, a.Registry, a.Schema, purger, indexinguc.Config{
		Budgets: model.Budgets{
			MaxSum:          cfg.Indexing.MaxSum,
			MaxSumNeural:    cfg.Indexing.MaxSumNeural,
			ThetaBudget:     cfg.Indexing.ThetaBudget,
			SimilarityFloor: cfg.Indexing.SimilarityFloor,
		},
		Mapping: func(name string) corpus.Mapping {
			m, _ := cfg.CorpusMapping(name)
			return corpus.Mapping{TitleField: m.TitleField, DateField: m.DateField}
		},
	}, logger)

	a.Health = healthuc.New(a.Engine, cachePing, infCheck)
}

// Close releases the cache connection.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Close()
	}
}
