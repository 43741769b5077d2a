package topicdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/app"
	"github.com/kailas-cloud/topicdex/internal/domain"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type queryUseCase interface {
	Execute(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error)
	ListCorpora(ctx context.Context) ([]string, error)
	ListCorpusModels(ctx context.Context, corpus string) ([]string, error)
	ListModels(ctx context.Context) ([]string, error)
}

type indexingUseCase interface {
	IndexCorpus(ctx context.Context, path string) (indexinguc.Result, error)
	DeleteCorpus(ctx context.Context, path string) (indexinguc.Result, error)
	IndexModel(ctx context.Context, dir string) (indexinguc.Result, error)
	DeleteModel(ctx context.Context, dir string) (indexinguc.Result, error)
}

type schemaUseCase interface {
	Reconcile(ctx context.Context, repair bool) (schemauc.Report, error)
	State(ctx context.Context, corpus, model string) (schemauc.Status, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the topicdex SDK entry point.
type Client struct {
	app       *app.App
	engine    pinger
	querySvc  queryUseCase
	indexSvc  indexingUseCase
	schemaSvc schemaUseCase
	healthSvc healthUseCase
	inference domain.Inferencer // nil without WithInferencer
	obs       *observer
}

// New connects to the engine (and the cache when configured), makes sure the
// registry collection exists and wires the services.
// The provided context is used for the initial readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.solrURL == "" {
		return nil, errors.New("topicdex: search engine url required (use WithSolr)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg.serviceConfig(), zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("topicdex: %w", err)
	}
	return wireClient(a, obs), nil
}

func wireClient(a *app.App, obs *observer) *Client {
	c := &Client{
		app:       a,
		engine:    a.Engine,
		querySvc:  a.Queries,
		indexSvc:  a.Indexing,
		schemaSvc: a.Schema,
		healthSvc: a.Health,
		obs:       obs,
	}
	if a.Inference != nil {
		c.inference = a.Inference
	}
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Queries returns the query service.
func (c *Client) Queries() *QueryService {
	return &QueryService{svc: c.querySvc, inference: c.inference, obs: c.obs}
}

// Corpora returns the corpus management service.
func (c *Client) Corpora() *CorpusService {
	return &CorpusService{svc: c.indexSvc, queries: c.querySvc, obs: c.obs}
}

// Models returns the model management service.
func (c *Client) Models() *ModelService {
	return &ModelService{svc: c.indexSvc, queries: c.querySvc, obs: c.obs}
}

// Schema returns the reconciliation service.
func (c *Client) Schema() *SchemaService {
	return &SchemaService{svc: c.schemaSvc, obs: c.obs}
}
