// Package query holds the parameterized engine query templates, one per kind
// of analytic request. Building a query is pure string substitution.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
)

// Kind identifies a query template.
type Kind int

// Query kinds.
const (
	Unknown Kind = iota
	OpenAccess
	MetadataFields
	DocCount
	ByYear
	ByRegion
	ByCity
	ByInstitution
	FreeText
	MetadataByID
	TopicLabels
	TopicByLabel
	ModelInfo
	TopicBetas
	CitationBand
	ByFunder
	SimilarityPairs
	SimilarToText
	Lemmas
	ThetasAndDate
	WordBeta
)

// Target says which kind of managed collection a template runs against.
type Target int

// Template targets.
const (
	// TargetCorpus runs on a corpus collection.
	TargetCorpus Target = iota
	// TargetModel runs on a model collection.
	TargetModel
	// TargetAny runs on either a corpus or a model collection.
	TargetAny
	// TargetRegistry is guarded as a corpus but runs on the registry collection.
	TargetRegistry
)

func (t Target) String() string {
	switch t {
	case TargetModel:
		return "model"
	case TargetAny:
		return "corpus or model"
	default:
		return "corpus"
	}
}

// Request argument names.
const (
	ArgCorpusCollection = "corpus_collection"
	ArgModelCollection  = "model_collection"
	ArgCollection       = "collection"
	ArgModelName        = "model_name"
	ArgOpenAccess       = "open_access"
	ArgYear             = "year"
	ArgContinent        = "continent"
	ArgCity             = "city"
	ArgInstitution      = "institution"
	ArgString           = "string"
	ArgDocID            = "doc_id"
	ArgTopicLabel       = "topic_label"
	ArgTopicID          = "topic_id"
	ArgTpcID            = "tpc_id"
	ArgWord             = "word"
	ArgLowerLimit       = "lower_limit"
	ArgUpperLimit       = "upper_limit"
	ArgFundSponsor      = "fund_sponsor"
	ArgNumRecords       = "num_records"
	ArgTextToInfer      = "text_to_infer"
	ArgStart            = "start"
	ArgRows             = "rows"

	// Derived by the orchestrator, never read from a request.
	ArgThetas = "_thetas"
	ArgFields = "_fields"
)

// integer arguments are validated before substitution.
var integerArgs = map[string]bool{
	ArgYear:       true,
	ArgLowerLimit: true,
	ArgUpperLimit: true,
	ArgNumRecords: true,
	ArgStart:      true,
	ArgRows:       true,
}

// Args are flat string request parameters.
type Args map[string]string

// Get returns a trimmed argument value.
func (a Args) Get(name string) string {
	return strings.TrimSpace(a[name])
}

// Page is the start/rows window of a paginated template.
type Page struct {
	Start int
	Rows  int
}

// Template describes one query kind.
type Template struct {
	Kind      Kind
	Route     string
	Target    Target
	CollArg   string // argument holding the collection name
	Required  []string
	Optional  []string
	Paginated bool

	render func(a Args, regions *region.Table) *db.QueryBuilder
}

// Collection returns the lowercased target collection named by args.
func (t Template) Collection(a Args) string {
	return strings.ToLower(a.Get(t.CollArg))
}

// Validate checks required and integer arguments.
func (t Template) Validate(a Args) error {
	for _, name := range t.Required {
		if a.Get(name) == "" {
			return &domain.MissingArgumentError{Name: name}
		}
	}
	for name := range a {
		if !integerArgs[name] || a.Get(name) == "" {
			continue
		}
		if _, err := strconv.Atoi(a.Get(name)); err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidArgument, name, a.Get(name))
		}
	}
	return nil
}

// Build renders the engine request. Paginated templates take page; others
// use their fixed row count.
func (t Template) Build(a Args, page Page, regions *region.Table) (*db.Query, error) {
	if err := t.Validate(a); err != nil {
		return nil, err
	}
	if page.Start < 0 || page.Rows < 0 {
		return nil, fmt.Errorf("%w: start and rows must not be negative", domain.ErrInvalidArgument)
	}
	b := t.render(a, regions)
	if t.Paginated {
		b.Start(page.Start).Rows(page.Rows)
	}
	if fl := a.Get(ArgFields); fl != "" {
		b.Fields(strings.Split(fl, ",")...)
	}
	return b.Build(), nil
}

func (k Kind) String() string {
	if t, ok := byKind[k]; ok {
		return t.Route
	}
	return "unknown"
}

// Lookup resolves a route name (e.g. "getDocsByYear") to its template.
func Lookup(route string) (Template, bool) {
	t, ok := byRoute[strings.Trim(route, "/")]
	return t, ok
}

// ForKind returns the template of k.
func ForKind(k Kind) (Template, bool) {
	t, ok := byKind[k]
	return t, ok
}

// All returns every template in declaration order.
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

var (
	byKind  = make(map[Kind]Template, len(templates))
	byRoute = make(map[string]Template, len(templates))
)

func init() {
	for _, t := range templates {
		byKind[t.Kind] = t
		byRoute[t.Route] = t
	}
}

// phrase escapes a value substituted inside double quotes.
func phrase(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

const specialChars = `+-&|!(){}[]^"~*?:\/ `

// term escapes a value substituted as a bare term.
func term(v string) string {
	var sb strings.Builder
	for _, r := range v {
		if strings.ContainsRune(specialChars, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// yearRange is the closed date range covering year y.
func yearRange(y string) string {
	return "date:[" + y + "-01-01T00:00:00Z TO " + y + "-12-31T23:59:59Z]"
}
