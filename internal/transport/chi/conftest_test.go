package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/domain"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

// --- Mock query service ---

type mockQueries struct {
	executeFn          func(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error)
	listCorporaFn      func(ctx context.Context) ([]string, error)
	listCorpusModelsFn func(ctx context.Context, corpus string) ([]string, error)
	listModelsFn       func(ctx context.Context) ([]string, error)

	calls    int
	lastKind domquery.Kind
	lastArgs domquery.Args
}

func (m *mockQueries) Execute(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error) {
	m.calls++
	m.lastKind = kind
	m.lastArgs = args
	if m.executeFn != nil {
		return m.executeFn(ctx, kind, args)
	}
	return []any{}, nil
}

func (m *mockQueries) ListCorpora(ctx context.Context) ([]string, error) {
	if m.listCorporaFn != nil {
		return m.listCorporaFn(ctx)
	}
	return []string{}, nil
}

func (m *mockQueries) ListCorpusModels(ctx context.Context, corpus string) ([]string, error) {
	if m.listCorpusModelsFn != nil {
		return m.listCorpusModelsFn(ctx, corpus)
	}
	return []string{}, nil
}

func (m *mockQueries) ListModels(ctx context.Context) ([]string, error) {
	if m.listModelsFn != nil {
		return m.listModelsFn(ctx)
	}
	return []string{}, nil
}

// --- Mock indexing service ---

type mockIndexing struct {
	err   error
	calls []string
}

func (m *mockIndexing) record(op, path string) (indexinguc.Result, error) {
	m.calls = append(m.calls, op+" "+path)
	if m.err != nil {
		return indexinguc.Result{}, m.err
	}
	return indexinguc.Result{Corpus: "cordis", Documents: 3}, nil
}

func (m *mockIndexing) IndexCorpus(_ context.Context, path string) (indexinguc.Result, error) {
	return m.record("indexCorpus", path)
}

func (m *mockIndexing) DeleteCorpus(_ context.Context, path string) (indexinguc.Result, error) {
	return m.record("deleteCorpus", path)
}

func (m *mockIndexing) IndexModel(_ context.Context, dir string) (indexinguc.Result, error) {
	return m.record("indexModel", dir)
}

func (m *mockIndexing) DeleteModel(_ context.Context, dir string) (indexinguc.Result, error) {
	return m.record("deleteModel", dir)
}

// --- Mock reconciler ---

type mockReconciler struct {
	reconcileFn func(ctx context.Context, repair bool) (schemauc.Report, error)
}

func (m *mockReconciler) Reconcile(ctx context.Context, repair bool) (schemauc.Report, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(ctx, repair)
	}
	return schemauc.Report{RunID: "run", Repair: repair, Issues: []schemauc.Issue{}}, nil
}

// --- Mock health ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report {
	return m.report
}

// --- Mock inferencer ---

type mockInferencer struct {
	inferFn func(ctx context.Context, model, text string) (domain.Inference, error)
}

func (m *mockInferencer) Infer(ctx context.Context, model, text string) (domain.Inference, error) {
	return m.inferFn(ctx, model, text)
}

// --- Fixtures ---

type testDeps struct {
	queries  *mockQueries
	indexing *mockIndexing
	schema   *mockReconciler
	health   *mockHealth
	router   http.Handler
}

func newTestRouter(t *testing.T, inf domain.Inferencer) *testDeps {
	t.Helper()
	regions, err := region.Parse([]byte(`
field: affiliation_country
default: world
regions:
  - name: world
    label: World
  - name: europe
    label: Europe
    countries: [Spain, Italy]
`))
	if err != nil {
		t.Fatalf("region.Parse: %v", err)
	}

	d := &testDeps{
		queries:  &mockQueries{},
		indexing: &mockIndexing{},
		schema:   &mockReconciler{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentEngine: healthuc.CheckOK},
		}},
	}
	svc := Services{
		Queries:  d.queries,
		Indexing: d.indexing,
		Schema:   d.schema,
		Health:   d.health,
		Regions:  regions,
	}
	if inf != nil {
		svc.Inference = inf
	}
	d.router = NewRouter(NewServer(svc, zap.NewNop()), RouterConfig{Logger: zap.NewNop()})
	return d
}

func (d *testDeps) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	d.router.ServeHTTP(rr, req)
	return rr
}

// requiredQuery renders every required argument of t with a placeholder value.
func requiredQuery(t domquery.Template) string {
	parts := make([]string, 0, len(t.Required))
	for _, name := range t.Required {
		parts = append(parts, name+"=1")
	}
	return strings.Join(parts, "&")
}
