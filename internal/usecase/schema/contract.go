package schema

import (
	"context"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// Engine is the part of the search engine the schema manager drives.
type Engine interface {
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	AddField(ctx context.Context, collection string, f db.Field) error
	DeleteField(ctx context.Context, collection, name string) error
	ListFields(ctx context.Context, collection string) ([]string, error)
	Update(ctx context.Context, collection string, docs []db.Document) error
}

// Registry records which models are attached to which corpus.
type Registry interface {
	Get(ctx context.Context, corpus string) (registry.Entry, error)
	List(ctx context.Context) ([]registry.Entry, error)
	Delete(ctx context.Context, e registry.Entry) error
	LinkModel(ctx context.Context, e registry.Entry, model string, fields ...string) error
	UnlinkModel(ctx context.Context, e registry.Entry, model string, fields ...string) error
	SetFields(ctx context.Context, e registry.Entry, fields []string) error
}
