package schema

import (
	"context"
	"slices"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/repository/registry"
)

// fakeEngine is an in-memory engine holding schema fields and update batches.
type fakeEngine struct {
	collections []string
	fields      map[string][]string
	batches     map[string][][]db.Document

	updateErr      error
	deleteFieldErr error
}

func newFakeEngine(collections ...string) *fakeEngine {
	fe := &fakeEngine{fields: map[string][]string{}, batches: map[string][][]db.Document{}}
	for _, c := range collections {
		fe.collections = append(fe.collections, c)
		fe.fields[c] = []string{"id", "_version_"}
	}
	return fe
}

func (f *fakeEngine) ListCollections(_ context.Context) ([]string, error) {
	return slices.Clone(f.collections), nil
}

func (f *fakeEngine) DeleteCollection(_ context.Context, c string) error {
	i := slices.Index(f.collections, c)
	if i < 0 {
		return &db.Error{Op: db.OpDeleteCollection, Status: 404, Err: db.ErrCollectionNotFound}
	}
	f.collections = slices.Delete(f.collections, i, i+1)
	delete(f.fields, c)
	return nil
}

func (f *fakeEngine) AddField(_ context.Context, c string, fl db.Field) error {
	if slices.Contains(f.fields[c], fl.Name) {
		return &db.Error{Op: db.OpAddField, Status: 400, Err: db.ErrFieldExists}
	}
	f.fields[c] = append(f.fields[c], fl.Name)
	return nil
}

func (f *fakeEngine) DeleteField(_ context.Context, c, name string) error {
	if f.deleteFieldErr != nil {
		return f.deleteFieldErr
	}
	i := slices.Index(f.fields[c], name)
	if i < 0 {
		return &db.Error{Op: db.OpDeleteField, Status: 400, Err: db.ErrFieldNotFound}
	}
	f.fields[c] = slices.Delete(f.fields[c], i, i+1)
	return nil
}

func (f *fakeEngine) ListFields(_ context.Context, c string) ([]string, error) {
	return slices.Clone(f.fields[c]), nil
}

func (f *fakeEngine) Update(_ context.Context, c string, docs []db.Document) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.batches[c] = append(f.batches[c], docs)
	return nil
}

// fakeRegistry applies link and unlink modifiers to in-memory entries.
type fakeRegistry struct {
	entries map[string]*registry.Entry
}

func newFakeRegistry(entries ...registry.Entry) *fakeRegistry {
	fr := &fakeRegistry{entries: map[string]*registry.Entry{}}
	for i := range entries {
		e := entries[i]
		fr.entries[e.Corpus] = &e
	}
	return fr
}

func (f *fakeRegistry) Get(_ context.Context, corpus string) (registry.Entry, error) {
	e, ok := f.entries[corpus]
	if !ok {
		return registry.Entry{}, domain.ErrNotFound
	}
	return clone(*e), nil
}

func (f *fakeRegistry) List(_ context.Context) ([]registry.Entry, error) {
	out := make([]registry.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, clone(*e))
	}
	slices.SortFunc(out, func(a, b registry.Entry) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeRegistry) Delete(_ context.Context, e registry.Entry) error {
	delete(f.entries, e.Corpus)
	return nil
}

func (f *fakeRegistry) LinkModel(_ context.Context, e registry.Entry, m string, fields ...string) error {
	cur := f.entries[e.Corpus]
	cur.Models = append(cur.Models, m)
	cur.Fields = append(cur.Fields, fields...)
	return nil
}

func (f *fakeRegistry) UnlinkModel(_ context.Context, e registry.Entry, m string, fields ...string) error {
	cur := f.entries[e.Corpus]
	cur.Models = slices.DeleteFunc(cur.Models, func(x string) bool { return x == m })
	cur.Fields = slices.DeleteFunc(cur.Fields, func(x string) bool { return slices.Contains(fields, x) })
	return nil
}

func (f *fakeRegistry) SetFields(_ context.Context, e registry.Entry, fields []string) error {
	f.entries[e.Corpus].Fields = slices.Clone(fields)
	return nil
}

func clone(e registry.Entry) registry.Entry {
	e.Fields = slices.Clone(e.Fields)
	e.Models = slices.Clone(e.Models)
	return e
}

var testTypes = FieldTypes{Vector: "VectorField", FloatVector: "VectorFloatField"}

func newTestService(t *testing.T, fe *fakeEngine, fr *fakeRegistry) *Service {
	t.Helper()
	return New(fe, fr, testTypes, zap.NewNop())
}

func cordisEntry() registry.Entry {
	return registry.Entry{ID: 1, Corpus: "cordis", Fields: []string{"id", "title", "date"}}
}

func updates(n int) []db.Document {
	docs := make([]db.Document, n)
	for i := range docs {
		docs[i] = db.Document{"id": int64(i + 1), "doctpc_mallet10": db.Set("t0|1000")}
	}
	return docs
}
