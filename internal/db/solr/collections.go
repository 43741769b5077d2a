package solr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kailas-cloud/topicdex/internal/db"
)

const collectionsPath = "/solr/admin/collections"

// CreateCollection creates a collection from the configured config set.
func (c *Client) CreateCollection(ctx context.Context, name string) error {
	q := url.Values{
		"action":    {"CREATE"},
		"name":      {name},
		"numShards": {strconv.Itoa(c.numShards)},
		"wt":        {"json"},
	}
	if c.configSet != "" {
		q.Set("collection.configName", c.configSet)
	}
	if err := c.do(ctx, db.OpCreateCollection, http.MethodGet, collectionsPath, q, nil, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection drops a collection. Returns db.ErrCollectionNotFound if it is absent.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	q := url.Values{
		"action": {"DELETE"},
		"name":   {name},
		"wt":     {"json"},
	}
	if err := c.do(ctx, db.OpDeleteCollection, http.MethodGet, collectionsPath, q, nil, nil); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns the names of all collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	q := url.Values{
		"action": {"LIST"},
		"wt":     {"json"},
	}
	var out struct {
		Collections []string `json:"collections"`
	}
	if err := c.do(ctx, db.OpListCollections, http.MethodGet, collectionsPath, q, nil, &out); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out.Collections, nil
}
