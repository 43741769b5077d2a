// Package indexing loads corpora and trained models from disk and writes them
// to the search engine.
package indexing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/entity/corpus"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/metrics"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// Config holds the encoding parameters of an indexing run.
type Config struct {
	Budgets model.Budgets
	// Mapping returns the title/date columns of a corpus by name.
	Mapping func(corpus string) corpus.Mapping
}

// Result summarizes one indexing operation.
type Result struct {
	Corpus    string `json:"corpus"`
	Model     string `json:"model,omitempty"`
	Documents int    `json:"documents"`
}

// Service indexes and deletes corpora and models.
type Service struct {
	engine   Engine
	registry Registry
	schema   SchemaManager
	purger   Purger
	cfg      Config
	logger   *zap.Logger
}

// New creates an indexing service. purger may be nil.
func New(engine Engine, reg Registry, sm SchemaManager, purger Purger, cfg Config, logger *zap.Logger) *Service {
	if cfg.Mapping == nil {
		cfg.Mapping = func(string) corpus.Mapping { return corpus.Mapping{} }
	}
	return &Service{
		engine:   engine,
		registry: reg,
		schema:   sm,
		purger:   purger,
		cfg:      cfg,
		logger:   logger,
	}
}

// IndexCorpus loads the corpus manifest at path, creates its collection,
// writes every document and registers the corpus.
func (s *Service) IndexCorpus(ctx context.Context, path string) (Result, error) {
	name := corpus.NameFromPath(path)
	log := s.logger.With(zap.String("corpus", name))

	if _, err := s.registry.Get(ctx, name); err == nil {
		return Result{}, fmt.Errorf("corpus %s: %w", name, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("lookup corpus %s: %w: %w", name, domain.ErrEngine, err)
	}

	c, err := corpus.Load(path, s.cfg.Mapping(name))
	if err != nil {
		return Result{}, fmt.Errorf("load corpus %s: %w", name, err)
	}
	log.Info("Corpus loaded", zap.Int("docs", len(c.Docs)), zap.Strings("fields", c.Fields))

	if err := s.createCollection(ctx, c.Name); err != nil {
		return Result{}, err
	}
	if err := s.schema.Submit(ctx, c.Name, c.Docs); err != nil {
		return Result{}, fmt.Errorf("index corpus %s: %w", c.Name, err)
	}
	metrics.IndexedDocumentsTotal.WithLabelValues("corpus").Add(float64(len(c.Docs)))

	if _, err := s.registry.Create(ctx, c.Name, c.Fields); err != nil {
		return Result{}, fmt.Errorf("register corpus %s: %w", c.Name, err)
	}
	log.Info("Corpus indexed", zap.Int("docs", len(c.Docs)))
	return Result{Corpus: c.Name, Documents: len(c.Docs)}, nil
}

// DeleteCorpus deletes the corpus named by the manifest path together with
// every model attached to it.
func (s *Service) DeleteCorpus(ctx context.Context, path string) (Result, error) {
	name := corpus.NameFromPath(path)
	log := s.logger.With(zap.String("corpus", name))

	e, err := s.registry.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, &domain.NotManagedError{Collection: name, Want: "corpus"}
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup corpus %s: %w: %w", name, domain.ErrEngine, err)
	}

	for _, m := range e.Models {
		if err := s.deleteCollection(ctx, m); err != nil {
			return Result{}, fmt.Errorf("delete corpus %s: %w", name, err)
		}
		s.purge(ctx, m)
		log.Info("Attached model deleted", zap.String("model", m))
	}
	if err := s.deleteCollection(ctx, name); err != nil {
		return Result{}, fmt.Errorf("delete corpus %s: %w", name, err)
	}
	if err := s.registry.Delete(ctx, e); err != nil {
		return Result{}, fmt.Errorf("unregister corpus %s: %w", name, err)
	}
	log.Info("Corpus deleted", zap.Int("models", len(e.Models)))
	return Result{Corpus: name}, nil
}

// IndexModel loads the model folder at dir, creates the model collection
// with one document per topic and attaches the model to its corpus.
func (s *Service) IndexModel(ctx context.Context, dir string) (Result, error) {
	m, err := model.Load(dir, s.cfg.Budgets)
	if err != nil {
		return Result{}, fmt.Errorf("load model %s: %w", model.NameFromPath(dir), err)
	}
	log := s.logger.With(zap.String("corpus", m.CorpusName), zap.String("model", m.Name))

	e, err := s.corpusEntry(ctx, m.CorpusName)
	if err != nil {
		return Result{}, err
	}
	if e.HasModel(m.Name) {
		return Result{}, fmt.Errorf("model %s on %s: %w", m.Name, m.CorpusName, domain.ErrAlreadyExists)
	}

	// Encode everything before the first write so a bad artifact leaves no trace.
	topics, err := m.BuildTopicDocuments()
	if err != nil {
		return Result{}, fmt.Errorf("encode model %s: %w", m.Name, err)
	}
	corpusName, updates, err := m.BuildCorpusUpdate(model.ActionSet)
	if err != nil {
		return Result{}, fmt.Errorf("encode model %s: %w", m.Name, err)
	}
	log.Info("Model encoded", zap.Int("topics", len(topics)), zap.Int("docs", len(updates)))

	if err := s.createCollection(ctx, m.Name); err != nil {
		return Result{}, err
	}
	if err := s.schema.Submit(ctx, m.Name, topics); err != nil {
		return Result{}, fmt.Errorf("index model %s: %w", m.Name, err)
	}
	metrics.IndexedDocumentsTotal.WithLabelValues("topic").Add(float64(len(topics)))

	if err := s.schema.Attach(ctx, corpusName, m.Name, updates); err != nil {
		return Result{}, err
	}
	metrics.IndexedDocumentsTotal.WithLabelValues("model").Add(float64(len(updates)))
	s.purge(ctx, m.Name)

	log.Info("Model indexed")
	return Result{Corpus: corpusName, Model: m.Name, Documents: len(updates)}, nil
}

// DeleteModel blanks the model's fields on its corpus, detaches it and
// deletes the model collection.
func (s *Service) DeleteModel(ctx context.Context, dir string) (Result, error) {
	m, err := model.Load(dir, s.cfg.Budgets)
	if err != nil {
		return Result{}, fmt.Errorf("load model %s: %w", model.NameFromPath(dir), err)
	}
	log := s.logger.With(zap.String("corpus", m.CorpusName), zap.String("model", m.Name))

	if _, err := s.corpusEntry(ctx, m.CorpusName); err != nil {
		return Result{}, err
	}
	corpusName, blanks, err := m.BuildCorpusUpdate(model.ActionRemove)
	if err != nil {
		return Result{}, fmt.Errorf("encode model %s: %w", m.Name, err)
	}

	if err := s.schema.Detach(ctx, corpusName, m.Name, blanks); err != nil {
		return Result{}, err
	}
	if err := s.deleteCollection(ctx, m.Name); err != nil {
		return Result{}, fmt.Errorf("delete model %s: %w", m.Name, err)
	}
	s.purge(ctx, m.Name)

	log.Info("Model deleted", zap.Int("docs", len(blanks)))
	return Result{Corpus: corpusName, Model: m.Name, Documents: len(blanks)}, nil
}

func (s *Service) corpusEntry(ctx context.Context, name string) (registry.Entry, error) {
	e, err := s.registry.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return registry.Entry{}, &domain.NotManagedError{Collection: name, Want: "corpus"}
	}
	if err != nil {
		return registry.Entry{}, fmt.Errorf("lookup corpus %s: %w: %w", name, domain.ErrEngine, err)
	}
	return e, nil
}

func (s *Service) createCollection(ctx context.Context, name string) error {
	err := s.engine.CreateCollection(ctx, name)
	switch {
	case errors.Is(err, db.ErrCollectionExists):
		return fmt.Errorf("collection %s: %w", name, domain.ErrAlreadyExists)
	case err != nil:
		return fmt.Errorf("create collection %s: %w: %w", name, domain.ErrEngine, err)
	}
	return nil
}

func (s *Service) deleteCollection(ctx context.Context, name string) error {
	err := s.engine.DeleteCollection(ctx, name)
	if err != nil && !errors.Is(err, db.ErrCollectionNotFound) {
		return fmt.Errorf("delete collection %s: %w: %w", name, domain.ErrEngine, err)
	}
	return nil
}

func (s *Service) purge(ctx context.Context, m string) {
	if s.purger == nil {
		return
	}
	if err := s.purger.Purge(ctx, m); err != nil {
		s.logger.Warn("Beta cache purge failed", zap.String("model", m), zap.Error(err))
	}
}
