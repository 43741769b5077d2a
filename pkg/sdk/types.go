package topicdex

import (
	"github.com/kailas-cloud/topicdex/internal/domain"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

// IndexResult summarizes one indexing or deletion.
type IndexResult struct {
	Corpus    string
	Model     string // empty for corpus operations
	Documents int
}

// QueryResult is the payload of a query template with its request counters.
type QueryResult struct {
	Data        any
	EngineCalls int
	CacheHits   int
	Inferred    bool
}

// Inference is the topic distribution inferred for a free text.
type Inference struct {
	ID     string
	Thetas string // sparse "t<k>|<weight>" encoding
}

// IssueKind classifies a registry/schema disagreement.
type IssueKind string

// Issue kinds reported by Reconcile.
const (
	ModelWithoutFields      IssueKind = IssueKind(schemauc.ModelWithoutFields)
	OrphanField             IssueKind = IssueKind(schemauc.OrphanField)
	FieldsOutOfSync         IssueKind = IssueKind(schemauc.FieldsOutOfSync)
	MissingModelCollection  IssueKind = IssueKind(schemauc.MissingModelCollection)
	MissingCorpusCollection IssueKind = IssueKind(schemauc.MissingCorpusCollection)
	UnmanagedCollection     IssueKind = IssueKind(schemauc.UnmanagedCollection)
)

// Issue is one disagreement found by Reconcile.
type Issue struct {
	Kind       IssueKind
	Corpus     string
	Model      string
	Field      string
	Collection string
	Repaired   bool
}

// ReconcileReport is the outcome of one reconciliation run.
type ReconcileReport struct {
	RunID  string
	Repair bool
	Issues []Issue
}

// Unrepaired counts the issues still present after the run.
func (r ReconcileReport) Unrepaired() int {
	n := 0
	for _, is := range r.Issues {
		if !is.Repaired {
			n++
		}
	}
	return n
}

// AttachmentState is the observed state of a model on a corpus:
// "attached", "detached" or "inconsistent".
type AttachmentState struct {
	Corpus          string
	Model           string
	State           string
	DocTopicField   bool
	SimilarityField bool
	Linked          bool
	Listed          bool
}

// --- Internal conversions ---

func fromInternalResult(r indexinguc.Result) IndexResult {
	return IndexResult{Corpus: r.Corpus, Model: r.Model, Documents: r.Documents}
}

func fromInternalReport(r schemauc.Report) ReconcileReport {
	out := ReconcileReport{
		RunID:  r.RunID,
		Repair: r.Repair,
		Issues: make([]Issue, len(r.Issues)),
	}
	for i, is := range r.Issues {
		out.Issues[i] = Issue{
			Kind:       IssueKind(is.Kind),
			Corpus:     is.Corpus,
			Model:      is.Model,
			Field:      is.Field,
			Collection: is.Collection,
			Repaired:   is.Repaired,
		}
	}
	return out
}

func fromInternalStatus(s schemauc.Status) AttachmentState {
	return AttachmentState{
		Corpus:          s.Corpus,
		Model:           s.Model,
		State:           string(s.State),
		DocTopicField:   s.DocTopicField,
		SimilarityField: s.SimilarityField,
		Linked:          s.Linked,
		Listed:          s.Listed,
	}
}

func fromInternalInference(inf domain.Inference) Inference {
	return Inference{ID: inf.ID, Thetas: inf.Thetas}
}

func fromStats(data any, s *domain.RequestStats) QueryResult {
	return QueryResult{
		Data:        data,
		EngineCalls: s.EngineCalls,
		CacheHits:   s.CacheHits,
		Inferred:    s.Inferred,
	}
}
