package db

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is a select request.
type Query struct {
	Q       string
	Filters []string
	Start   int
	Rows    int
	Fields  []string
	Sort    string
}

// QueryBuilder is a fluent builder for select requests.
type QueryBuilder struct {
	q Query
}

// NewQuery starts building a select request for q.
func NewQuery(q string) *QueryBuilder {
	return &QueryBuilder{q: Query{Q: q}}
}

// Filter adds a filter query.
func (b *QueryBuilder) Filter(fq string) *QueryBuilder {
	if fq != "" {
		b.q.Filters = append(b.q.Filters, fq)
	}
	return b
}

// Start sets the result offset.
func (b *QueryBuilder) Start(n int) *QueryBuilder {
	b.q.Start = n
	return b
}

// Rows sets the page size. Zero asks for the hit count only.
func (b *QueryBuilder) Rows(n int) *QueryBuilder {
	b.q.Rows = n
	return b
}

// Fields sets the returned field list.
func (b *QueryBuilder) Fields(fields ...string) *QueryBuilder {
	b.q.Fields = append(b.q.Fields, fields...)
	return b
}

// Sort sets the sort clause, e.g. "id desc".
func (b *QueryBuilder) Sort(s string) *QueryBuilder {
	b.q.Sort = s
	return b
}

// Build returns the request.
func (b *QueryBuilder) Build() *Query {
	q := b.q
	return &q
}

// Params renders the request as URL parameters.
func (q *Query) Params() url.Values {
	v := url.Values{}
	v.Set("q", q.Q)
	for _, fq := range q.Filters {
		v.Add("fq", fq)
	}
	v.Set("start", strconv.Itoa(q.Start))
	v.Set("rows", strconv.Itoa(q.Rows))
	if len(q.Fields) > 0 {
		v.Set("fl", strings.Join(q.Fields, ","))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// String returns a debug representation of the request.
func (q *Query) String() string {
	return q.Params().Encode()
}
