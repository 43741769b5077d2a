// Package schema keeps a corpus schema, its documents and the registry in
// agreement about which models are attached.
package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// DefaultBatchSize is the number of documents per update request.
const DefaultBatchSize = 100

// State of a (corpus, model) attachment.
type State string

// Attachment states.
const (
	Detached     State = "detached"
	Attached     State = "attached"
	Inconsistent State = "inconsistent"
)

// FieldTypes are the engine type tags of the derived fields.
type FieldTypes struct {
	Vector      string // doctpc_<model>
	FloatVector string // sim_<model>
}

// Status is the observed attachment state with the facts behind it.
type Status struct {
	Corpus          string `json:"corpus"`
	Model           string `json:"model"`
	State           State  `json:"state"`
	DocTopicField   bool   `json:"doctpc_field"`
	SimilarityField bool   `json:"sim_field"`
	Linked          bool   `json:"linked"`
	Listed          bool   `json:"listed"`
}

// Service attaches and detaches models on corpus collections.
type Service struct {
	engine    Engine
	registry  Registry
	types     FieldTypes
	batchSize int
	// registryCollection enables the unmanaged collection check of Reconcile.
	registryCollection string
	logger             *zap.Logger
}

// New creates a schema service.
func New(engine Engine, reg Registry, types FieldTypes, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		registry:  reg,
		types:     types,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize configures the update batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// WithRegistryCollection names the registry collection so Reconcile can tell
// collections nothing refers to apart from the registry itself.
func (s *Service) WithRegistryCollection(name string) *Service {
	s.registryCollection = name
	return s
}

// Attach adds the model's derived fields to the corpus schema, writes updates
// and links the model in the registry. Steps are not atomic; a failure leaves
// an intermediate state visible through State and Reconcile.
func (s *Service) Attach(ctx context.Context, corpus, modelName string, updates []db.Document) error {
	e, err := s.corpusEntry(ctx, corpus)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("corpus", corpus), zap.String("model", modelName))

	docField, simField := model.DocTopicField(modelName), model.SimilarityField(modelName)
	if err := s.addField(ctx, corpus, docField, s.types.Vector); err != nil {
		return err
	}
	if err := s.addField(ctx, corpus, simField, s.types.FloatVector); err != nil {
		return err
	}
	log.Info("Derived fields added", zap.Strings("fields", []string{docField, simField}))

	if err := s.Submit(ctx, corpus, updates); err != nil {
		return fmt.Errorf("attach %s to %s: %w", modelName, corpus, err)
	}

	if !e.HasModel(modelName) {
		if err := s.registry.LinkModel(ctx, e, modelName, docField, simField); err != nil {
			return fmt.Errorf("attach %s to %s: %w", modelName, corpus, err)
		}
	}
	log.Info("Model attached", zap.Int("docs", len(updates)))
	return nil
}

// Detach blanks the model's fields, drops them from the schema and removes
// the registry linkage.
func (s *Service) Detach(ctx context.Context, corpus, modelName string, blanks []db.Document) error {
	e, err := s.corpusEntry(ctx, corpus)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("corpus", corpus), zap.String("model", modelName))

	if err := s.Submit(ctx, corpus, blanks); err != nil {
		return fmt.Errorf("detach %s from %s: %w", modelName, corpus, err)
	}
	log.Info("Derived fields blanked", zap.Int("docs", len(blanks)))

	docField, simField := model.DocTopicField(modelName), model.SimilarityField(modelName)
	for _, f := range []string{docField, simField} {
		if err := s.dropField(ctx, corpus, f); err != nil {
			return err
		}
	}

	if e.HasModel(modelName) || slices.Contains(e.Fields, docField) || slices.Contains(e.Fields, simField) {
		if err := s.registry.UnlinkModel(ctx, e, modelName, docField, simField); err != nil {
			return fmt.Errorf("detach %s from %s: %w", modelName, corpus, err)
		}
	}
	log.Info("Model detached")
	return nil
}

// State reports the attachment state of model on corpus.
func (s *Service) State(ctx context.Context, corpus, modelName string) (Status, error) {
	e, err := s.corpusEntry(ctx, corpus)
	if err != nil {
		return Status{}, err
	}
	fields, err := s.engine.ListFields(ctx, corpus)
	if err != nil {
		return Status{}, fmt.Errorf("list fields of %s: %w: %w", corpus, domain.ErrEngine, err)
	}

	docField, simField := model.DocTopicField(modelName), model.SimilarityField(modelName)
	st := Status{
		Corpus:          corpus,
		Model:           modelName,
		DocTopicField:   slices.Contains(fields, docField),
		SimilarityField: slices.Contains(fields, simField),
		Linked:          e.HasModel(modelName),
		Listed:          slices.Contains(e.Fields, docField) && slices.Contains(e.Fields, simField),
	}
	switch {
	case st.DocTopicField && st.SimilarityField && st.Linked && st.Listed:
		st.State = Attached
	case !st.DocTopicField && !st.SimilarityField && !st.Linked &&
		!slices.Contains(e.Fields, docField) && !slices.Contains(e.Fields, simField):
		st.State = Detached
	default:
		st.State = Inconsistent
	}
	return st, nil
}

// Submit writes docs to collection in fixed-size batches.
func (s *Service) Submit(ctx context.Context, collection string, docs []db.Document) error {
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		if err := s.engine.Update(ctx, collection, docs[start:end]); err != nil {
			return fmt.Errorf("update %s batch at %d: %w: %w", collection, start, domain.ErrEngine, err)
		}
		s.logger.Debug("Batch submitted",
			zap.String("collection", collection),
			zap.Int("batch", start/s.batchSize),
			zap.Int("docs", end-start),
		)
	}
	return nil
}

func (s *Service) corpusEntry(ctx context.Context, corpus string) (registry.Entry, error) {
	e, err := s.registry.Get(ctx, corpus)
	if errors.Is(err, domain.ErrNotFound) {
		return registry.Entry{}, &domain.NotManagedError{Collection: corpus, Want: "corpus"}
	}
	if err != nil {
		return registry.Entry{}, fmt.Errorf("%w: %w", domain.ErrEngine, err)
	}
	return e, nil
}

func (s *Service) addField(ctx context.Context, corpus, name, typ string) error {
	err := s.engine.AddField(ctx, corpus, db.Field{Name: name, Type: typ, Stored: true, Indexed: true})
	if err != nil && !errors.Is(err, db.ErrFieldExists) {
		return fmt.Errorf("add field %s to %s: %w: %w", name, corpus, domain.ErrEngine, err)
	}
	return nil
}

func (s *Service) dropField(ctx context.Context, corpus, name string) error {
	err := s.engine.DeleteField(ctx, corpus, name)
	if err != nil && !errors.Is(err, db.ErrFieldNotFound) {
		return fmt.Errorf("delete field %s from %s: %w: %w", name, corpus, domain.ErrEngine, err)
	}
	return nil
}
