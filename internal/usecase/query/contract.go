package query

import (
	"context"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// Engine runs select requests.
type Engine interface {
	Select(ctx context.Context, collection string, q *db.Query) (*db.Result, error)
}

// Registry answers which collections are managed corpora and models.
type Registry interface {
	Collection() string
	Get(ctx context.Context, corpus string) (registry.Entry, error)
	FindModel(ctx context.Context, model string) (registry.Entry, error)
	List(ctx context.Context) ([]registry.Entry, error)
}
