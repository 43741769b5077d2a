package solr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/topicdex/internal/db"
)

type fieldDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Stored      bool   `json:"stored"`
	Indexed     bool   `json:"indexed"`
	MultiValued bool   `json:"multiValued"`
}

// AddField adds f to the collection schema.
// Returns db.ErrFieldExists if a field with that name is already defined.
func (c *Client) AddField(ctx context.Context, collection string, f db.Field) error {
	body := map[string]any{
		"add-field": fieldDef{
			Name:        f.Name,
			Type:        f.Type,
			Stored:      f.Stored,
			Indexed:     f.Indexed,
			MultiValued: f.MultiValued,
		},
	}
	path := "/solr/" + url.PathEscape(collection) + "/schema"
	if err := c.do(ctx, db.OpAddField, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("add field %s to %s: %w", f.Name, collection, err)
	}
	return nil
}

// DeleteField removes a field. Returns db.ErrFieldNotFound if it is not defined.
func (c *Client) DeleteField(ctx context.Context, collection, name string) error {
	body := map[string]any{
		"delete-field": map[string]string{"name": name},
	}
	path := "/solr/" + url.PathEscape(collection) + "/schema"
	if err := c.do(ctx, db.OpDeleteField, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("delete field %s from %s: %w", name, collection, err)
	}
	return nil
}

// ListFields returns the explicitly defined field names of a collection.
func (c *Client) ListFields(ctx context.Context, collection string) ([]string, error) {
	var out struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	path := "/solr/" + url.PathEscape(collection) + "/schema/fields"
	q := url.Values{"wt": {"json"}}
	if err := c.do(ctx, db.OpListFields, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, fmt.Errorf("list fields of %s: %w", collection, err)
	}
	names := make([]string, 0, len(out.Fields))
	for _, f := range out.Fields {
		names = append(names, f.Name)
	}
	return names, nil
}
