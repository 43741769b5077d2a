package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/entity/corpus"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// --- Mock engine ---

type mockEngine struct {
	createCollectionFn func(ctx context.Context, name string) error
	deleteCollectionFn func(ctx context.Context, name string) error

	created []string
	deleted []string
}

func (m *mockEngine) CreateCollection(ctx context.Context, name string) error {
	m.created = append(m.created, name)
	if m.createCollectionFn != nil {
		return m.createCollectionFn(ctx, name)
	}
	return nil
}

func (m *mockEngine) DeleteCollection(ctx context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	if m.deleteCollectionFn != nil {
		return m.deleteCollectionFn(ctx, name)
	}
	return nil
}

// --- Mock registry ---

type mockRegistry struct {
	getFn    func(ctx context.Context, corpus string) (registry.Entry, error)
	createFn func(ctx context.Context, corpus string, fields []string) (registry.Entry, error)
	deleteFn func(ctx context.Context, e registry.Entry) error
}

func (m *mockRegistry) Get(ctx context.Context, corpus string) (registry.Entry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, corpus)
	}
	return registry.Entry{}, domain.ErrNotFound
}

func (m *mockRegistry) Create(ctx context.Context, corpus string, fields []string) (registry.Entry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, corpus, fields)
	}
	return registry.Entry{ID: 1, Corpus: corpus, Fields: fields}, nil
}

func (m *mockRegistry) Delete(ctx context.Context, e registry.Entry) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, e)
	}
	return nil
}

func registered(e registry.Entry) func(context.Context, string) (registry.Entry, error) {
	return func(_ context.Context, c string) (registry.Entry, error) {
		if c != e.Corpus {
			return registry.Entry{}, domain.ErrNotFound
		}
		return e, nil
	}
}

// --- Mock schema manager ---

type mockSchema struct {
	attachFn func(ctx context.Context, corpus, model string, updates []db.Document) error
	detachFn func(ctx context.Context, corpus, model string, blanks []db.Document) error
	submitFn func(ctx context.Context, collection string, docs []db.Document) error

	submitted map[string]int
}

func (m *mockSchema) Attach(ctx context.Context, corpus, model string, updates []db.Document) error {
	if m.attachFn != nil {
		return m.attachFn(ctx, corpus, model, updates)
	}
	return nil
}

func (m *mockSchema) Detach(ctx context.Context, corpus, model string, blanks []db.Document) error {
	if m.detachFn != nil {
		return m.detachFn(ctx, corpus, model, blanks)
	}
	return nil
}

func (m *mockSchema) Submit(ctx context.Context, collection string, docs []db.Document) error {
	if m.submitted == nil {
		m.submitted = map[string]int{}
	}
	m.submitted[collection] += len(docs)
	if m.submitFn != nil {
		return m.submitFn(ctx, collection, docs)
	}
	return nil
}

// --- Mock purger ---

type mockPurger struct {
	purged []string
	err    error
}

func (m *mockPurger) Purge(_ context.Context, model string) error {
	m.purged = append(m.purged, model)
	return m.err
}

// --- Fixtures ---

var testBudgets = model.Budgets{MaxSum: 10, MaxSumNeural: 100, ThetaBudget: 1000}

func newTestService(eng *mockEngine, reg *mockRegistry, sm *mockSchema, p *mockPurger) *Service {
	cfg := Config{
		Budgets: testBudgets,
		Mapping: func(string) corpus.Mapping {
			return corpus.Mapping{TitleField: "name", DateField: "startDate"}
		},
	}
	if p == nil {
		return New(eng, reg, sm, nil, cfg, zap.NewNop())
	}
	return New(eng, reg, sm, p, cfg, zap.NewNop())
}

type rawRow struct {
	ProjectID int64  `parquet:"projectID"`
	Name      string `parquet:"name"`
	Start     string `parquet:"startDate"`
	Lemmas    string `parquet:"summary_lemmas"`
}

// writeCorpus lays out Cordis.json with a three-row dataset.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "raw.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[rawRow](f)
	rows := []rawRow{
		{ProjectID: 1, Name: "Sun", Start: "2019-05-17T00:00:00Z", Lemmas: "solar energy"},
		{ProjectID: 2, Name: "Wind", Start: "2020-01-02T00:00:00Z", Lemmas: "wind power"},
		{ProjectID: 3, Name: "Grid", Start: "2021-03-04T00:00:00Z", Lemmas: "grid"},
	}
	if _, err := w.Write(rows); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	path := filepath.Join(dir, "Cordis.json")
	body := `{"Dtsets":[{"parquet":"raw.parquet","idfld":"projectID","lemmasfld":["summary_lemmas"]}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeModel lays out a two-topic mallet model trained on cordis.
func writeModel(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "mallet10")
	files := map[string]string{
		"trainconfig.json":      `{"TrDtSet": "/data/Cordis.json", "trainer": "mallet"}`,
		"corpus.txt":            "1 0 solar energy\n2 0 wind power\n3 0 grid\n",
		"TMmodel/alphas.txt":    "0.6\n0.4\n",
		"TMmodel/betas.txt":     "0.5 0.3 0.2\n0 0.5 0.5\n",
		"TMmodel/vocab.txt":     "energy\nsolar\nwind\n",
		"TMmodel/thetas.txt":    "0|0.7 1|0.3\n1|1.0\n0|1.0\n",
		"TMmodel/distances.txt": "2|0.9 3|0.2\n1|0.9\n1|0.2\n",
	}
	for rel, body := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
