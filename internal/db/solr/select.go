package solr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/topicdex/internal/db"
)

type selectResponse struct {
	ResponseHeader responseHeader `json:"responseHeader"`
	Response       struct {
		NumFound int           `json:"numFound"`
		Docs     []db.Document `json:"docs"`
	} `json:"response"`
}

// Select runs q against collection.
func (c *Client) Select(ctx context.Context, collection string, q *db.Query) (*db.Result, error) {
	params := q.Params()
	params.Set("wt", "json")

	var out selectResponse
	path := "/solr/" + url.PathEscape(collection) + "/select"
	if err := c.do(ctx, db.OpSelect, http.MethodGet, path, params, nil, &out); err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	if out.ResponseHeader.Status != 0 {
		return nil, &db.Error{
			Op:  db.OpSelect,
			Err: fmt.Errorf("%w: engine status %d", db.ErrUnexpectedStatus, out.ResponseHeader.Status),
		}
	}
	if out.Response.Docs == nil {
		out.Response.Docs = []db.Document{}
	}
	return &db.Result{
		Status: out.ResponseHeader.Status,
		Hits:   out.Response.NumFound,
		Docs:   out.Response.Docs,
	}, nil
}
