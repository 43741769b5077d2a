package query

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// --- Mock engine ---

type selectCall struct {
	collection string
	q          *db.Query
}

type mockEngine struct {
	selectFn func(ctx context.Context, collection string, q *db.Query) (*db.Result, error)
	calls    []selectCall
}

func (m *mockEngine) Select(ctx context.Context, collection string, q *db.Query) (*db.Result, error) {
	m.calls = append(m.calls, selectCall{collection: collection, q: q})
	if m.selectFn != nil {
		return m.selectFn(ctx, collection, q)
	}
	return &db.Result{Docs: []db.Document{}}, nil
}

// answer serves count queries with hits and every other query with docs.
func answer(hits int, docs ...db.Document) func(context.Context, string, *db.Query) (*db.Result, error) {
	return func(_ context.Context, _ string, q *db.Query) (*db.Result, error) {
		if q.Rows == 0 {
			return &db.Result{Hits: hits, Docs: []db.Document{}}, nil
		}
		return &db.Result{Hits: hits, Docs: docs}, nil
	}
}

// --- Mock registry ---

type mockRegistry struct {
	entries []registry.Entry
	err     error
}

func (m *mockRegistry) Collection() string { return "corpus_col" }

func (m *mockRegistry) Get(_ context.Context, corpus string) (registry.Entry, error) {
	if m.err != nil {
		return registry.Entry{}, m.err
	}
	for _, e := range m.entries {
		if e.Corpus == corpus {
			return e, nil
		}
	}
	return registry.Entry{}, domain.ErrNotFound
}

func (m *mockRegistry) FindModel(_ context.Context, model string) (registry.Entry, error) {
	if m.err != nil {
		return registry.Entry{}, m.err
	}
	for _, e := range m.entries {
		if e.HasModel(model) {
			return e, nil
		}
	}
	return registry.Entry{}, domain.ErrNotFound
}

func (m *mockRegistry) List(_ context.Context) ([]registry.Entry, error) {
	return m.entries, m.err
}

// --- Mock inferencer ---

type mockInferencer struct {
	inferFn func(ctx context.Context, model, text string) (domain.Inference, error)
}

func (m *mockInferencer) Infer(ctx context.Context, model, text string) (domain.Inference, error) {
	if m.inferFn != nil {
		return m.inferFn(ctx, model, text)
	}
	return domain.Inference{ID: "0", Thetas: "t0|1000"}, nil
}

// --- Mock beta lookup ---

type mockBetas struct {
	wordBetaFn func(ctx context.Context, model, topic, word string) (int, error)
}

func (m *mockBetas) WordBeta(ctx context.Context, model, topic, word string) (int, error) {
	return m.wordBetaFn(ctx, model, topic, word)
}

// --- Fixtures ---

func testRegistry() *mockRegistry {
	return &mockRegistry{entries: []registry.Entry{
		{
			ID:     1,
			Corpus: "cordis",
			Fields: []string{"id", "title", "date", "all_lemmas", "nwords_per_doc", "doctpc_mallet10", "sim_mallet10"},
			Models: []string{"mallet10"},
		},
		{ID: 2, Corpus: "scholar", Fields: []string{"id", "title"}},
	}}
}

func testRegions(t *testing.T) *region.Table {
	t.Helper()
	tbl, err := region.Parse([]byte(`
field: affiliation_country
default: world
regions:
  - name: world
  - name: europe
    countries: [Spain, Italy]
`))
	if err != nil {
		t.Fatalf("region.Parse: %v", err)
	}
	return tbl
}

func newTestService(t *testing.T, eng *mockEngine, reg *mockRegistry, inf domain.Inferencer) *Service {
	t.Helper()
	cfg := Config{NoMetaFields: []string{"all_lemmas", "nwords_per_doc"}, Regions: testRegions(t)}
	return New(eng, reg, inf, cfg, zap.NewNop())
}

func num(s string) json.Number { return json.Number(s) }
