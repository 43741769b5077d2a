// Package corpus turns a raw dataset manifest into documents for a corpus collection.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/entity/dataset"
)

// Derived and canonical field names.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldDate      = "date"
	FieldLemmas    = "all_lemmas"
	FieldWordCount = "nwords_per_doc"
)

// DateLayout is the engine's instant format.
const DateLayout = "2006-01-02T15:04:05Z"

// Manifest describes the raw datasets behind a logical corpus.
type Manifest struct {
	Dtsets []Dataset `json:"Dtsets"`
}

// Dataset is one parquet source.
type Dataset struct {
	Parquet     string   `json:"parquet"`
	IDField     string   `json:"idfld"`
	LemmaFields []string `json:"lemmasfld"`
}

// Mapping names the raw columns that become title and date.
type Mapping struct {
	TitleField string
	DateField  string
}

// Corpus is a loaded logical corpus.
type Corpus struct {
	Name   string
	Fields []string
	Docs   []db.Document
}

// NameFromPath returns the corpus name for a manifest path: the file stem, lowercased.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadManifest parses a corpus manifest. Exactly one dataset is supported.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedManifest, path, err)
	}
	switch {
	case len(m.Dtsets) == 0:
		return Manifest{}, fmt.Errorf("%w: %s lists no dataset", domain.ErrMalformedManifest, path)
	case len(m.Dtsets) > 1:
		return Manifest{}, fmt.Errorf("%w: %s lists %d datasets, only one is supported",
			domain.ErrMalformedManifest, path, len(m.Dtsets))
	}
	ds := m.Dtsets[0]
	if ds.Parquet == "" || ds.IDField == "" || len(ds.LemmaFields) == 0 {
		return Manifest{}, fmt.Errorf("%w: %s needs parquet, idfld and lemmasfld", domain.ErrMalformedManifest, path)
	}
	if !filepath.IsAbs(ds.Parquet) {
		m.Dtsets[0].Parquet = filepath.Join(filepath.Dir(path), ds.Parquet)
	}
	return m, nil
}

// Load reads the manifest at path and the dataset it points to.
func Load(path string, mapping Mapping) (*Corpus, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	ds := m.Dtsets[0]

	tbl, err := dataset.ReadParquet(ds.Parquet)
	if err != nil {
		return nil, fmt.Errorf("load dataset of %s: %w", NameFromPath(path), err)
	}

	lemmaIdx := make([]int, len(ds.LemmaFields))
	for i, f := range ds.LemmaFields {
		if lemmaIdx[i] = tbl.Index(f); lemmaIdx[i] < 0 {
			return nil, fmt.Errorf("%w: lemma column %q not in dataset", domain.ErrMalformedManifest, f)
		}
	}
	if tbl.Index(ds.IDField) < 0 {
		return nil, fmt.Errorf("%w: id column %q not in dataset", domain.ErrMalformedManifest, ds.IDField)
	}

	fields := renameColumns(tbl.Columns, map[string]string{
		ds.IDField:         FieldID,
		mapping.TitleField: FieldTitle,
		mapping.DateField:  FieldDate,
	})
	for _, f := range fields {
		if strings.HasPrefix(f, "doctpc_") || strings.HasPrefix(f, "sim_") {
			return nil, fmt.Errorf("%w: column %q uses a prefix reserved for model fields", domain.ErrMalformedManifest, f)
		}
	}
	fields = append(fields, FieldLemmas, FieldWordCount)

	c := &Corpus{
		Name:   NameFromPath(path),
		Fields: fields,
		Docs:   make([]db.Document, 0, len(tbl.Rows)),
	}
	for _, row := range tbl.Rows {
		doc := make(db.Document, len(fields))
		for i, v := range row {
			doc[fields[i]] = value(v)
		}
		lemmas := joinLemmas(row, lemmaIdx)
		doc[FieldLemmas] = lemmas
		doc[FieldWordCount] = len(strings.Fields(lemmas))
		c.Docs = append(c.Docs, doc)
	}
	return c, nil
}

// renameColumns applies renames in column order. Empty source names are ignored.
func renameColumns(cols []string, renames map[string]string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c
		if to, ok := renames[c]; ok && c != "" {
			out[i] = to
		}
	}
	return out
}

// value renders one cell for the engine: nulls become "", times use DateLayout.
func value(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(DateLayout)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = value(x[i])
		}
		return out
	default:
		return x
	}
}

func joinLemmas(row []any, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		switch s := row[j].(type) {
		case nil:
		case string:
			parts[i] = s
		default:
			parts[i] = fmt.Sprint(s)
		}
	}
	return strings.Join(parts, " ")
}
