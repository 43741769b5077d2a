package indexing

import (
	"context"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// Engine is the collection side of the search engine.
type Engine interface {
	CreateCollection(ctx context.Context, name string) error
	DeleteCollection(ctx context.Context, name string) error
}

// Registry tracks indexed corpora and their attached models.
type Registry interface {
	Get(ctx context.Context, corpus string) (registry.Entry, error)
	Create(ctx context.Context, corpus string, fields []string) (registry.Entry, error)
	Delete(ctx context.Context, e registry.Entry) error
}

// SchemaManager attaches and detaches models on corpus collections.
type SchemaManager interface {
	Attach(ctx context.Context, corpus, model string, updates []db.Document) error
	Detach(ctx context.Context, corpus, model string, blanks []db.Document) error
	Submit(ctx context.Context, collection string, docs []db.Document) error
}

// Purger drops cached values derived from a model.
type Purger interface {
	Purge(ctx context.Context, model string) error
}
