package solr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/topicdex/internal/db"
)

// Update submits docs and commits.
func (c *Client) Update(ctx context.Context, collection string, docs []db.Document) error {
	if len(docs) == 0 {
		return nil
	}
	path := "/solr/" + url.PathEscape(collection) + "/update"
	q := url.Values{"commit": {"true"}, "wt": {"json"}}
	if err := c.do(ctx, db.OpUpdate, http.MethodPost, path, q, docs, nil); err != nil {
		return fmt.Errorf("update %s (%d docs): %w", collection, len(docs), err)
	}
	return nil
}

// DeleteByID removes documents by id and commits.
func (c *Client) DeleteByID(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	path := "/solr/" + url.PathEscape(collection) + "/update"
	q := url.Values{"commit": {"true"}, "wt": {"json"}}
	body := map[string]any{"delete": ids}
	if err := c.do(ctx, db.OpUpdate, http.MethodPost, path, q, body, nil); err != nil {
		return fmt.Errorf("delete %d docs from %s: %w", len(ids), collection, err)
	}
	return nil
}
