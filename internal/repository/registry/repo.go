// Package registry stores the corpus/model relationship table: one engine
// document per corpus listing its visible fields and attached models.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
)

// Registry document fields.
const (
	fieldID     = "id"
	fieldCorpus = "corpus_name"
	fieldFields = "fields"
	fieldModels = "models"
)

// store is the consumer interface for the registry (ISP).
type store interface {
	CreateCollection(ctx context.Context, name string) error
	Select(ctx context.Context, collection string, q *db.Query) (*db.Result, error)
	Update(ctx context.Context, collection string, docs []db.Document) error
	DeleteByID(ctx context.Context, collection string, ids ...string) error
}

// Entry is one registered corpus.
type Entry struct {
	ID     int64    `json:"id"`
	Corpus string   `json:"corpus_name"`
	Fields []string `json:"fields"`
	Models []string `json:"models"`
}

// HasModel reports whether model is linked to the corpus.
func (e Entry) HasModel(model string) bool {
	return slices.Contains(e.Models, model)
}

// Repo reads and writes the registry collection.
type Repo struct {
	store      store
	collection string
}

// New creates a registry repository backed by collection.
func New(s store, collection string) *Repo {
	return &Repo{store: s, collection: collection}
}

// Collection returns the registry collection name.
func (r *Repo) Collection() string { return r.collection }

// EnsureCollection creates the registry collection if it is missing.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	err := r.store.CreateCollection(ctx, r.collection)
	if err != nil && !errors.Is(err, db.ErrCollectionExists) {
		return fmt.Errorf("create registry %s: %w", r.collection, err)
	}
	return nil
}

// List returns every entry ordered by id.
func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	docs, err := r.selectAll(ctx, "*:*")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e, err := entryFromDoc(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Get returns the entry for corpus, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, corpus string) (Entry, error) {
	res, err := r.store.Select(ctx, r.collection,
		db.NewQuery(fieldCorpus+":"+strconv.Quote(corpus)).Rows(1).Build())
	if err != nil {
		return Entry{}, fmt.Errorf("select registry entry %s: %w", corpus, err)
	}
	if len(res.Docs) == 0 {
		return Entry{}, fmt.Errorf("corpus %s: %w", corpus, domain.ErrNotFound)
	}
	return entryFromDoc(res.Docs[0])
}

// FindModel returns the entry the model is attached to, or domain.ErrNotFound.
func (r *Repo) FindModel(ctx context.Context, model string) (Entry, error) {
	res, err := r.store.Select(ctx, r.collection,
		db.NewQuery(fieldModels+":"+strconv.Quote(model)).Rows(1).Build())
	if err != nil {
		return Entry{}, fmt.Errorf("select registry model %s: %w", model, err)
	}
	if len(res.Docs) == 0 {
		return Entry{}, fmt.Errorf("model %s: %w", model, domain.ErrNotFound)
	}
	return entryFromDoc(res.Docs[0])
}

// Create registers corpus with the next free id.
func (r *Repo) Create(ctx context.Context, corpus string, fields []string) (Entry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	var next int64 = 1
	for _, e := range entries {
		if e.Corpus == corpus {
			return Entry{}, fmt.Errorf("corpus %s: %w", corpus, domain.ErrAlreadyExists)
		}
		if e.ID >= next {
			next = e.ID + 1
		}
	}

	doc := db.Document{fieldID: next, fieldCorpus: corpus, fieldFields: fields}
	if err := r.store.Update(ctx, r.collection, []db.Document{doc}); err != nil {
		return Entry{}, fmt.Errorf("insert registry entry %s: %w", corpus, err)
	}
	return Entry{ID: next, Corpus: corpus, Fields: fields}, nil
}

// Delete removes the entry for corpus.
func (r *Repo) Delete(ctx context.Context, e Entry) error {
	if err := r.store.DeleteByID(ctx, r.collection, strconv.FormatInt(e.ID, 10)); err != nil {
		return fmt.Errorf("delete registry entry %s: %w", e.Corpus, err)
	}
	return nil
}

// LinkModel appends model and its derived fields to the entry.
func (r *Repo) LinkModel(ctx context.Context, e Entry, model string, fields ...string) error {
	return r.modify(ctx, e, db.Add, model, fields)
}

// UnlinkModel removes model and its derived fields from the entry.
func (r *Repo) UnlinkModel(ctx context.Context, e Entry, model string, fields ...string) error {
	return r.modify(ctx, e, db.Remove, model, fields)
}

func (r *Repo) modify(ctx context.Context, e Entry, op func(any) map[string]any, model string, fields []string) error {
	doc := db.Document{fieldID: e.ID, fieldModels: op(model)}
	if len(fields) > 0 {
		doc[fieldFields] = op(fields)
	}
	if err := r.store.Update(ctx, r.collection, []db.Document{doc}); err != nil {
		return fmt.Errorf("update registry entry %s: %w", e.Corpus, err)
	}
	return nil
}

// SetFields replaces the visible field list of the entry.
func (r *Repo) SetFields(ctx context.Context, e Entry, fields []string) error {
	doc := db.Document{fieldID: e.ID, fieldFields: db.Set(fields)}
	if err := r.store.Update(ctx, r.collection, []db.Document{doc}); err != nil {
		return fmt.Errorf("set registry fields %s: %w", e.Corpus, err)
	}
	return nil
}

// selectAll counts the matches first, then fetches them in one page.
func (r *Repo) selectAll(ctx context.Context, q string) ([]db.Document, error) {
	count, err := r.store.Select(ctx, r.collection, db.NewQuery(q).Rows(0).Build())
	if err != nil {
		return nil, fmt.Errorf("count registry: %w", err)
	}
	if count.Hits == 0 {
		return []db.Document{}, nil
	}
	res, err := r.store.Select(ctx, r.collection, db.NewQuery(q).Rows(count.Hits).Build())
	if err != nil {
		return nil, fmt.Errorf("select registry: %w", err)
	}
	return res.Docs, nil
}

func entryFromDoc(d db.Document) (Entry, error) {
	id, err := d.Int(fieldID)
	if err != nil {
		return Entry{}, fmt.Errorf("registry entry: %w", err)
	}
	return Entry{
		ID:     id,
		Corpus: d.String(fieldCorpus),
		Fields: d.Strings(fieldFields),
		Models: d.Strings(fieldModels),
	}, nil
}
