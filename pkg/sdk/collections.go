package topicdex

import (
	"context"
	"fmt"
	"time"
)

// CorpusService indexes, deletes and lists corpus collections.
type CorpusService struct {
	svc     indexingUseCase
	queries queryUseCase
	obs     *observer
}

// Index loads the training manifest at path into a new corpus collection.
func (s *CorpusService) Index(ctx context.Context, path string) (_ IndexResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("corpus.index", start, err, "path", path) }()

	res, err := s.svc.IndexCorpus(ctx, path)
	if err != nil {
		return IndexResult{}, fmt.Errorf("index corpus: %w", err)
	}
	s.obs.documents("corpus.index", res.Documents)
	return fromInternalResult(res), nil
}

// Delete drops the corpus at path, every model trained on it and its
// registry entry.
func (s *CorpusService) Delete(ctx context.Context, path string) (_ IndexResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("corpus.delete", start, err, "path", path) }()

	res, err := s.svc.DeleteCorpus(ctx, path)
	if err != nil {
		return IndexResult{}, fmt.Errorf("delete corpus: %w", err)
	}
	return fromInternalResult(res), nil
}

// List returns the registered corpus names.
func (s *CorpusService) List(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("corpus.list", start, err) }()

	names, err := s.queries.ListCorpora(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	return names, nil
}

// Models returns the models attached to corpus.
func (s *CorpusService) Models(ctx context.Context, corpus string) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("corpus.models", start, err, "corpus", corpus) }()

	names, err := s.queries.ListCorpusModels(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("list models of %s: %w", corpus, err)
	}
	return names, nil
}

// ModelService indexes, deletes and lists model collections.
type ModelService struct {
	svc     indexingUseCase
	queries queryUseCase
	obs     *observer
}

// Index loads the trained model in dir and attaches it to its corpus.
func (s *ModelService) Index(ctx context.Context, dir string) (_ IndexResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("model.index", start, err, "path", dir) }()

	res, err := s.svc.IndexModel(ctx, dir)
	if err != nil {
		return IndexResult{}, fmt.Errorf("index model: %w", err)
	}
	s.obs.documents("model.index", res.Documents)
	return fromInternalResult(res), nil
}

// Delete detaches the model in dir from its corpus and drops its collection.
func (s *ModelService) Delete(ctx context.Context, dir string) (_ IndexResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("model.delete", start, err, "path", dir) }()

	res, err := s.svc.DeleteModel(ctx, dir)
	if err != nil {
		return IndexResult{}, fmt.Errorf("delete model: %w", err)
	}
	s.obs.documents("model.delete", res.Documents)
	return fromInternalResult(res), nil
}

// List returns every registered model across all corpora.
func (s *ModelService) List(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("model.list", start, err) }()

	names, err := s.queries.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return names, nil
}
