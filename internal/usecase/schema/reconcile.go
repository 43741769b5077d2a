package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// IssueKind classifies a registry/schema disagreement.
type IssueKind string

// Issue kinds found by Reconcile.
const (
	// ModelWithoutFields is a linked model missing a derived field in the schema.
	ModelWithoutFields IssueKind = "model_without_fields"
	// OrphanField is a derived schema field of a model that is not linked.
	OrphanField IssueKind = "orphan_field"
	// FieldsOutOfSync is a registry field list that disagrees with the linked models.
	FieldsOutOfSync IssueKind = "fields_out_of_sync"
	// MissingModelCollection is a linked model whose collection does not exist.
	MissingModelCollection IssueKind = "missing_model_collection"
	// MissingCorpusCollection is a registry entry whose corpus collection does not exist.
	MissingCorpusCollection IssueKind = "missing_corpus_collection"
	// UnmanagedCollection is a collection that is neither a registered corpus,
	// a linked model nor the registry, e.g. left by an interrupted IndexModel.
	UnmanagedCollection IssueKind = "unmanaged_collection"
)

// Issue is one disagreement found by Reconcile.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Corpus     string    `json:"corpus,omitempty"`
	Model      string    `json:"model,omitempty"`
	Field      string    `json:"field,omitempty"`
	Collection string    `json:"collection,omitempty"`
	Repaired   bool      `json:"repaired"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID  string  `json:"run_id"`
	Repair bool    `json:"repair"`
	Issues []Issue `json:"issues"`
}

const (
	docTopicPrefix   = "doctpc_"
	similarityPrefix = "sim_"
)

// Reconcile compares every registry entry with its corpus schema and the
// existing collections. With repair, each issue converges to Detached and
// unmanaged collections are deleted. A repaired registry reports nothing on
// the next run.
func (s *Service) Reconcile(ctx context.Context, repair bool) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Repair: repair, Issues: []Issue{}}
	log := s.logger.With(zap.String("run_id", rep.RunID), zap.Bool("repair", repair))

	collections, err := s.engine.ListCollections(ctx)
	if err != nil {
		return rep, fmt.Errorf("list collections: %w: %w", domain.ErrEngine, err)
	}
	entries, err := s.registry.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list registry: %w: %w", domain.ErrEngine, err)
	}

	for _, e := range entries {
		issues, err := s.reconcileEntry(ctx, e, collections, repair)
		rep.Issues = append(rep.Issues, issues...)
		if err != nil {
			return rep, err
		}
	}

	if s.registryCollection != "" {
		issues, err := s.reconcileUnmanaged(ctx, entries, collections, repair)
		rep.Issues = append(rep.Issues, issues...)
		if err != nil {
			return rep, err
		}
	}

	log.Info("Reconciliation finished", zap.Int("entries", len(entries)), zap.Int("issues", len(rep.Issues)))
	return rep, nil
}

func (s *Service) reconcileEntry(
	ctx context.Context, e registry.Entry, collections []string, repair bool,
) ([]Issue, error) {
	var issues []Issue
	record := func(is Issue, fix func() error) error {
		if repair {
			if err := fix(); err != nil {
				issues = append(issues, is)
				return err
			}
			is.Repaired = true
		}
		issues = append(issues, is)
		return nil
	}

	if !slices.Contains(collections, e.Corpus) {
		err := record(Issue{Kind: MissingCorpusCollection, Corpus: e.Corpus}, func() error {
			return s.registry.Delete(ctx, e)
		})
		return issues, err
	}

	fields, err := s.engine.ListFields(ctx, e.Corpus)
	if err != nil {
		return issues, fmt.Errorf("list fields of %s: %w: %w", e.Corpus, domain.ErrEngine, err)
	}

	// Linked models that lost a field or their collection are detached.
	linked := make([]string, 0, len(e.Models))
	for _, m := range e.Models {
		kind := IssueKind("")
		switch {
		case !slices.Contains(fields, model.DocTopicField(m)) || !slices.Contains(fields, model.SimilarityField(m)):
			kind = ModelWithoutFields
		case !slices.Contains(collections, m):
			kind = MissingModelCollection
		}
		if kind == "" {
			linked = append(linked, m)
			continue
		}
		err := record(Issue{Kind: kind, Corpus: e.Corpus, Model: m}, func() error {
			return s.detachFields(ctx, e, m)
		})
		if err != nil {
			return issues, err
		}
	}

	// Derived fields with no linked model are dropped.
	for _, f := range fields {
		m, ok := derivedModel(f)
		if !ok || slices.Contains(e.Models, m) {
			continue
		}
		err := record(Issue{Kind: OrphanField, Corpus: e.Corpus, Model: m, Field: f}, func() error {
			return s.dropField(ctx, e.Corpus, f)
		})
		if err != nil {
			return issues, err
		}
	}

	// The visible field list must carry exactly the derived fields of linked models.
	want := expectedFields(e, linked)
	if !sameSet(visibleFields(e, linked), want) {
		err := record(Issue{Kind: FieldsOutOfSync, Corpus: e.Corpus}, func() error {
			return s.registry.SetFields(ctx, e, want)
		})
		if err != nil {
			return issues, err
		}
	}
	return issues, nil
}

// reconcileUnmanaged flags collections no registry entry refers to. Repair
// deletes them so a re-run of the interrupted operation starts clean.
func (s *Service) reconcileUnmanaged(
	ctx context.Context, entries []registry.Entry, collections []string, repair bool,
) ([]Issue, error) {
	known := map[string]struct{}{s.registryCollection: {}}
	for _, e := range entries {
		known[e.Corpus] = struct{}{}
		for _, m := range e.Models {
			known[m] = struct{}{}
		}
	}

	var issues []Issue
	for _, c := range collections {
		if _, ok := known[c]; ok {
			continue
		}
		is := Issue{Kind: UnmanagedCollection, Collection: c}
		if repair {
			err := s.engine.DeleteCollection(ctx, c)
			if err != nil && !errors.Is(err, db.ErrCollectionNotFound) {
				issues = append(issues, is)
				return issues, fmt.Errorf("delete collection %s: %w: %w", c, domain.ErrEngine, err)
			}
			is.Repaired = true
		}
		issues = append(issues, is)
	}
	return issues, nil
}

// detachFields drops both derived fields of m and removes its linkage.
func (s *Service) detachFields(ctx context.Context, e registry.Entry, m string) error {
	docField, simField := model.DocTopicField(m), model.SimilarityField(m)
	for _, f := range []string{docField, simField} {
		if err := s.dropField(ctx, e.Corpus, f); err != nil {
			return err
		}
	}
	if err := s.registry.UnlinkModel(ctx, e, m, docField, simField); err != nil {
		return fmt.Errorf("unlink %s from %s: %w", m, e.Corpus, err)
	}
	return nil
}

func derivedModel(field string) (string, bool) {
	for _, p := range []string{docTopicPrefix, similarityPrefix} {
		if m, ok := strings.CutPrefix(field, p); ok && m != "" {
			return m, true
		}
	}
	return "", false
}

// expectedFields is the entry's base fields followed by the derived fields of linked.
func expectedFields(e registry.Entry, linked []string) []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if _, derived := derivedModel(f); !derived {
			out = append(out, f)
		}
	}
	for _, m := range linked {
		out = append(out, model.DocTopicField(m), model.SimilarityField(m))
	}
	return out
}

// visibleFields is the registry field list, ignoring derived fields of models
// that are linked in the registry but detached by this run.
func visibleFields(e registry.Entry, linked []string) []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if m, derived := derivedModel(f); derived && e.HasModel(m) && !slices.Contains(linked, m) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}
