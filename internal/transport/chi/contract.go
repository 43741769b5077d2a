package chi

import (
	"context"

	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

// QueryService runs query templates and registry listings.
type QueryService interface {
	Execute(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error)
	ListCorpora(ctx context.Context) ([]string, error)
	ListCorpusModels(ctx context.Context, corpus string) ([]string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// IndexingService indexes and deletes corpora and models.
type IndexingService interface {
	IndexCorpus(ctx context.Context, path string) (indexinguc.Result, error)
	DeleteCorpus(ctx context.Context, path string) (indexinguc.Result, error)
	IndexModel(ctx context.Context, dir string) (indexinguc.Result, error)
	DeleteModel(ctx context.Context, dir string) (indexinguc.Result, error)
}

// Reconciler compares the registry with the engine schema.
type Reconciler interface {
	Reconcile(ctx context.Context, repair bool) (schemauc.Report, error)
}

// HealthService aggregates collaborator health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
