package topicdex

import (
	"context"

	"github.com/kailas-cloud/topicdex/internal/domain"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

// --- queryUseCase mock ---

type mockQueryUC struct {
	executeFn          func(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error)
	listCorporaFn      func(ctx context.Context) ([]string, error)
	listCorpusModelsFn func(ctx context.Context, corpus string) ([]string, error)
	listModelsFn       func(ctx context.Context) ([]string, error)
}

func (m *mockQueryUC) Execute(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error) {
	return m.executeFn(ctx, kind, args)
}

func (m *mockQueryUC) ListCorpora(ctx context.Context) ([]string, error) {
	return m.listCorporaFn(ctx)
}

func (m *mockQueryUC) ListCorpusModels(ctx context.Context, corpus string) ([]string, error) {
	return m.listCorpusModelsFn(ctx, corpus)
}

func (m *mockQueryUC) ListModels(ctx context.Context) ([]string, error) {
	return m.listModelsFn(ctx)
}

// --- indexingUseCase mock ---

type mockIndexingUC struct {
	indexCorpusFn  func(ctx context.Context, path string) (indexinguc.Result, error)
	deleteCorpusFn func(ctx context.Context, path string) (indexinguc.Result, error)
	indexModelFn   func(ctx context.Context, dir string) (indexinguc.Result, error)
	deleteModelFn  func(ctx context.Context, dir string) (indexinguc.Result, error)
}

func (m *mockIndexingUC) IndexCorpus(ctx context.Context, path string) (indexinguc.Result, error) {
	return m.indexCorpusFn(ctx, path)
}

func (m *mockIndexingUC) DeleteCorpus(ctx context.Context, path string) (indexinguc.Result, error) {
	return m.deleteCorpusFn(ctx, path)
}

func (m *mockIndexingUC) IndexModel(ctx context.Context, dir string) (indexinguc.Result, error) {
	return m.indexModelFn(ctx, dir)
}

func (m *mockIndexingUC) DeleteModel(ctx context.Context, dir string) (indexinguc.Result, error) {
	return m.deleteModelFn(ctx, dir)
}

// --- schemaUseCase mock ---

type mockSchemaUC struct {
	reconcileFn func(ctx context.Context, repair bool) (schemauc.Report, error)
	stateFn     func(ctx context.Context, corpus, model string) (schemauc.Status, error)
}

func (m *mockSchemaUC) Reconcile(ctx context.Context, repair bool) (schemauc.Report, error) {
	return m.reconcileFn(ctx, repair)
}

func (m *mockSchemaUC) State(ctx context.Context, corpus, model string) (schemauc.Status, error) {
	return m.stateFn(ctx, corpus, model)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.report
}

// --- pinger / inferencer mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockInferencer struct {
	inferFn func(ctx context.Context, model, text string) (domain.Inference, error)
}

func (m *mockInferencer) Infer(ctx context.Context, model, text string) (domain.Inference, error) {
	return m.inferFn(ctx, model, text)
}

// --- helpers ---

func testClient(q queryUseCase, idx indexingUseCase, sch schemaUseCase) *Client {
	return &Client{
		querySvc:  q,
		indexSvc:  idx,
		schemaSvc: sch,
	}
}
