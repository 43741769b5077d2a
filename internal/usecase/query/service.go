// Package query runs the analytic query templates against managed collections
// and post-processes their results.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/codec"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
	"github.com/kailas-cloud/topicdex/internal/domain/similarity"
	"github.com/kailas-cloud/topicdex/internal/entity/model"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// Config holds query post-processing settings.
type Config struct {
	// NoMetaFields are registry fields never reported as document metadata.
	NoMetaFields []string
	Regions      *region.Table
}

// Service executes query templates.
type Service struct {
	engine     Engine
	registry   Registry
	inferencer domain.Inferencer
	betas      domain.WordBetaLookup
	cfg        Config
	logger     *zap.Logger
}

// New creates a query service. inferencer may be nil, in which case
// free-text similarity queries fail.
func New(engine Engine, reg Registry, inferencer domain.Inferencer, cfg Config, logger *zap.Logger) *Service {
	s := &Service{
		engine:     engine,
		registry:   reg,
		inferencer: inferencer,
		cfg:        cfg,
		logger:     logger,
	}
	s.betas = s
	return s
}

// WithBetaLookup routes the per-word beta lookups of model info through l,
// typically a cache wrapping this service.
func (s *Service) WithBetaLookup(l domain.WordBetaLookup) *Service {
	if l != nil {
		s.betas = l
	}
	return s
}

// Execute validates args, guards the target collection, fills default
// pagination and runs the template of kind.
func (s *Service) Execute(ctx context.Context, kind domquery.Kind, args domquery.Args) (any, error) {
	t, ok := domquery.ForKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown query kind %d", domain.ErrInvalidArgument, kind)
	}
	if err := t.Validate(args); err != nil {
		return nil, err
	}
	args = clone(args)
	coll := t.Collection(args)

	e, err := s.guard(ctx, t, coll)
	if err != nil {
		return nil, err
	}
	modelName := strings.ToLower(args.Get(domquery.ArgModelName))
	if t.Target == domquery.TargetCorpus && modelName != "" && !e.HasModel(modelName) {
		return nil, &domain.NotManagedError{Collection: modelName, Want: "model of " + coll}
	}

	switch kind {
	case domquery.WordBeta:
		n, err := s.betas.WordBeta(ctx, coll, args.Get(domquery.ArgTpcID), args.Get(domquery.ArgWord))
		if err != nil {
			return nil, err
		}
		return map[string]int{"betas": n}, nil
	case domquery.DocCount:
		n, err := s.count(ctx, coll)
		if err != nil {
			return nil, err
		}
		return map[string]int{"ndocs": n}, nil
	case domquery.MetadataByID:
		args[domquery.ArgFields] = strings.Join(s.metadataFields(e), ",")
	case domquery.SimilarToText:
		thetas, err := s.infer(ctx, modelName, args.Get(domquery.ArgTextToInfer))
		if err != nil {
			return nil, err
		}
		args[domquery.ArgThetas] = thetas
	}

	page, err := s.page(ctx, t, coll, args)
	if err != nil {
		return nil, err
	}
	q, err := t.Build(args, page, s.cfg.Regions)
	if err != nil {
		return nil, err
	}
	target := coll
	if t.Target == domquery.TargetRegistry {
		target = s.registry.Collection()
	}
	res, err := s.sel(ctx, target, q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Query executed",
		zap.String("kind", kind.String()),
		zap.String("collection", target),
		zap.Int("hits", res.Hits),
		zap.Int("docs", len(res.Docs)),
	)

	docs := res.Docs
	if docs == nil {
		docs = []db.Document{}
	}

	switch kind {
	case domquery.MetadataFields:
		return map[string][]string{"metadata_fields": s.metadataFields(e)}, nil
	case domquery.TopicBetas:
		if len(docs) == 0 {
			return nil, fmt.Errorf("topic t%s of %s: %w", args.Get(domquery.ArgTopicID), coll, domain.ErrNotFound)
		}
		return map[string]string{"betas": docs[0].String("betas")}, nil
	case domquery.Lemmas:
		if len(docs) == 0 {
			return nil, fmt.Errorf("document %s of %s: %w", args.Get(domquery.ArgDocID), coll, domain.ErrNotFound)
		}
		return map[string]string{"lemmas": docs[0].String("all_lemmas")}, nil
	case domquery.ModelInfo:
		if err := s.addTopWordBetas(ctx, coll, docs); err != nil {
			return nil, err
		}
		return docs, nil
	case domquery.SimilarityPairs:
		limit, _ := strconv.Atoi(args.Get(domquery.ArgNumRecords))
		return pairs(docs, model.SimilarityField(modelName), limit)
	default:
		return docs, nil
	}
}

// WordBeta returns the encoded weight of word in topic of the model collection.
func (s *Service) WordBeta(ctx context.Context, modelName, topic, word string) (int, error) {
	t, _ := domquery.ForKind(domquery.WordBeta)
	q, err := t.Build(domquery.Args{
		domquery.ArgModelName: modelName,
		domquery.ArgTpcID:     topic,
		domquery.ArgWord:      word,
	}, domquery.Page{}, nil)
	if err != nil {
		return 0, err
	}
	res, err := s.sel(ctx, modelName, q)
	if err != nil {
		return 0, err
	}
	if len(res.Docs) == 0 {
		return 0, fmt.Errorf("topic t%s of %s: %w", topic, modelName, domain.ErrNotFound)
	}
	vec, err := codec.Parse(res.Docs[0].String("betas"))
	if err != nil {
		return 0, fmt.Errorf("betas of t%s in %s: %w: %w", topic, modelName, domain.ErrEngine, err)
	}
	n, _ := vec.Weight(word)
	return n, nil
}

// ListCorpora returns the names of all registered corpora.
func (s *Service) ListCorpora(ctx context.Context) ([]string, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w: %w", domain.ErrEngine, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Corpus)
	}
	return out, nil
}

// ListCorpusModels returns the models attached to corpus.
func (s *Service) ListCorpusModels(ctx context.Context, corpus string) ([]string, error) {
	t, _ := domquery.ForKind(domquery.MetadataFields)
	e, err := s.guard(ctx, t, strings.ToLower(strings.TrimSpace(corpus)))
	if err != nil {
		return nil, err
	}
	if e.Models == nil {
		return []string{}, nil
	}
	return e.Models, nil
}

// ListModels returns every attached model across all corpora.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w: %w", domain.ErrEngine, err)
	}
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Models...)
	}
	return out, nil
}

// guard checks that coll is a managed collection of the template's target.
// Corpus targets return the registry entry.
func (s *Service) guard(ctx context.Context, t domquery.Template, coll string) (registry.Entry, error) {
	notManaged := &domain.NotManagedError{Collection: coll, Want: t.Target.String()}
	if coll == "" {
		return registry.Entry{}, notManaged
	}

	if t.Target != domquery.TargetModel {
		e, err := s.registry.Get(ctx, coll)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return registry.Entry{}, fmt.Errorf("lookup %s: %w: %w", coll, domain.ErrEngine, err)
		}
		if t.Target != domquery.TargetAny {
			return registry.Entry{}, notManaged
		}
	}

	_, err := s.registry.FindModel(ctx, coll)
	if errors.Is(err, domain.ErrNotFound) {
		return registry.Entry{}, notManaged
	}
	if err != nil {
		return registry.Entry{}, fmt.Errorf("lookup %s: %w: %w", coll, domain.ErrEngine, err)
	}
	return registry.Entry{}, nil
}

// page fills start=0 and rows=<collection size> when omitted.
func (s *Service) page(ctx context.Context, t domquery.Template, coll string, args domquery.Args) (domquery.Page, error) {
	if !t.Paginated {
		return domquery.Page{}, nil
	}
	var p domquery.Page
	if v := args.Get(domquery.ArgStart); v != "" {
		p.Start, _ = strconv.Atoi(v)
	}
	if v := args.Get(domquery.ArgRows); v != "" {
		p.Rows, _ = strconv.Atoi(v)
		return p, nil
	}
	n, err := s.count(ctx, coll)
	if err != nil {
		return domquery.Page{}, err
	}
	p.Rows = n
	return p, nil
}

func (s *Service) count(ctx context.Context, coll string) (int, error) {
	t, _ := domquery.ForKind(domquery.DocCount)
	q, err := t.Build(domquery.Args{domquery.ArgCollection: coll}, domquery.Page{}, nil)
	if err != nil {
		return 0, err
	}
	res, err := s.sel(ctx, coll, q)
	if err != nil {
		return 0, err
	}
	return res.Hits, nil
}

func (s *Service) sel(ctx context.Context, coll string, q *db.Query) (*db.Result, error) {
	domain.StatsFromContext(ctx).AddEngineCall()
	res, err := s.engine.Select(ctx, coll, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", coll, domain.ErrEngine, err)
	}
	return res, nil
}

func (s *Service) infer(ctx context.Context, modelName, text string) (string, error) {
	if s.inferencer == nil {
		return "", fmt.Errorf("%w: no inference service configured", domain.ErrInferenceFailed)
	}
	inf, err := s.inferencer.Infer(ctx, modelName, text)
	if err != nil {
		return "", err
	}
	domain.StatsFromContext(ctx).MarkInferred()
	return inf.Thetas, nil
}

func (s *Service) metadataFields(e registry.Entry) []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !slices.Contains(s.cfg.NoMetaFields, f) {
			out = append(out, f)
		}
	}
	return out
}

// addTopWordBetas sets top_words_betas on every topic document to the
// "word|beta" list of its description words.
func (s *Service) addTopWordBetas(ctx context.Context, modelName string, docs []db.Document) error {
	for _, d := range docs {
		desc := d.String("tpc_descriptions")
		_, topic, _ := strings.Cut(d.String("id"), "t")
		if desc == "" || topic == "" {
			continue
		}
		words := strings.Split(desc, ", ")
		tokens := make([]string, 0, len(words))
		for _, w := range words {
			beta, err := s.betas.WordBeta(ctx, modelName, topic, w)
			if err != nil {
				return fmt.Errorf("top words of t%s: %w", topic, err)
			}
			tokens = append(tokens, w+"|"+strconv.Itoa(beta))
		}
		d["top_words_betas"] = strings.Join(tokens, " ")
	}
	return nil
}

// pairs reconstructs the ranked similarity pairs among the returned documents.
// The packed score is taken verbatim from the engine response.
func pairs(docs []db.Document, simField string, limit int) ([]similarity.Pair, error) {
	rows := make([]similarity.Row, 0, len(docs))
	for _, d := range docs {
		id, err := d.Int("id")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEngine, err)
		}
		rows = append(rows, similarity.Row{
			ID:           id,
			Similarities: d.String(simField),
			PackedScore:  d.String("score"),
		})
	}
	out, err := similarity.Reconstruct(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEngine, err)
	}
	return out, nil
}

func clone(a domquery.Args) domquery.Args {
	out := make(domquery.Args, len(a)+2)
	for k, v := range a {
		out[k] = v
	}
	return out
}
