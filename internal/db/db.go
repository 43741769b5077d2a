package db

import (
	"context"
	"time"
)

// Engine is the search-engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Engine interface {
	Pinger
	CollectionAdmin
	SchemaAdmin
	Indexer
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionAdmin manages collection lifecycle.
type CollectionAdmin interface {
	// CreateCollection returns ErrCollectionExists if name is taken.
	CreateCollection(ctx context.Context, name string) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
}

// SchemaAdmin adds and removes named fields on a collection schema.
type SchemaAdmin interface {
	AddField(ctx context.Context, collection string, f Field) error
	DeleteField(ctx context.Context, collection, name string) error
	ListFields(ctx context.Context, collection string) ([]string, error)
}

// Indexer submits documents. Field values wrapped with Set, Add or Remove
// are applied as atomic updates; plain values replace the whole document.
type Indexer interface {
	Update(ctx context.Context, collection string, docs []Document) error
	DeleteByID(ctx context.Context, collection string, ids ...string) error
}

// Searcher runs queries.
type Searcher interface {
	Select(ctx context.Context, collection string, q *Query) (*Result, error)
}

// KVStore is the cache-side key-value store.
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Field describes a schema field to add.
type Field struct {
	Name        string
	Type        string
	Stored      bool
	Indexed     bool
	MultiValued bool
}

// Result is the parsed answer of a select request.
type Result struct {
	Status int
	Hits   int
	Docs   []Document
}

// Set wraps v as a replace-the-field update.
func Set(v any) map[string]any { return map[string]any{"set": v} }

// Add wraps v as an append-to-multivalue update.
func Add(v any) map[string]any { return map[string]any{"add": v} }

// Remove wraps v as a remove-from-multivalue update.
func Remove(v any) map[string]any { return map[string]any{"remove": v} }
