package registry

import (
	"context"
	"testing"

	"github.com/kailas-cloud/topicdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createCollectionFn func(ctx context.Context, name string) error
	selectFn           func(ctx context.Context, collection string, q *db.Query) (*db.Result, error)
	updateFn           func(ctx context.Context, collection string, docs []db.Document) error
	deleteByIDFn       func(ctx context.Context, collection string, ids ...string) error
}

func (m *mockStore) CreateCollection(ctx context.Context, name string) error {
	if m.createCollectionFn != nil {
		return m.createCollectionFn(ctx, name)
	}
	return nil
}

func (m *mockStore) Select(ctx context.Context, collection string, q *db.Query) (*db.Result, error) {
	if m.selectFn != nil {
		return m.selectFn(ctx, collection, q)
	}
	return &db.Result{Docs: []db.Document{}}, nil
}

func (m *mockStore) Update(ctx context.Context, collection string, docs []db.Document) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, collection, docs)
	}
	return nil
}

func (m *mockStore) DeleteByID(ctx context.Context, collection string, ids ...string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, collection, ids...)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "corpus_col"), ms
}

// withDocs answers count and fetch queries from a fixed document set.
func withDocs(ms *mockStore, docs ...db.Document) {
	ms.selectFn = func(_ context.Context, _ string, q *db.Query) (*db.Result, error) {
		if q.Rows == 0 {
			return &db.Result{Hits: len(docs), Docs: []db.Document{}}, nil
		}
		return &db.Result{Hits: len(docs), Docs: docs}, nil
	}
}
