// Package metaxclient implements the Metax dataset catalogue client,
// grounded on original_source/metadata_backend/services/metax_service.py:
// Authorization: Token header, draft/patch/publish/delete over /datasets,
// and a fields-of-science reference-data fetch cached ≥1 week.
package metaxclient

import (
	"context"
	"fmt"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/cache"
	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

const fieldsOfScienceTTL = 7 * 24 * 60 * 60 // seconds, 1 week

type Client struct {
	sc    *svcclient.ServiceClient
	cache *cache.TTLCache
}

func New(baseURL, token string, c *cache.TTLCache) *Client {
	sc := svcclient.New(svcclient.Config{
		Name:    "metax",
		BaseURL: baseURL,
		DefaultHeaders: map[string]string{
			"Authorization": "Token " + token,
		},
		HealthPath: "/datasets?limit=1&fields=id",
	})
	return &Client{sc: sc, cache: c}
}

func (c *Client) CreateDraftDataset(ctx context.Context, doi, title, description string) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   "/datasets",
		JSON: map[string]interface{}{
			"title":                 map[string]string{"en": title},
			"description":           map[string]string{"en": description},
			"persistent_identifier": doi,
			"state":                 "draft",
		},
	})
	if err != nil {
		return "", err
	}
	id, _ := resp.JSON["id"].(string)
	if id == "" {
		return "", apperr.UpstreamError("metax", 502, "draft dataset response missing id")
	}
	return id, nil
}

func (c *Client) GetDataset(ctx context.Context, metaxID string) (map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{Method: "GET", Path: fmt.Sprintf("/datasets/%s", metaxID)})
	if err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

func (c *Client) Patch(ctx context.Context, metaxID string, partial map[string]interface{}) error {
	_, err := c.sc.Do(ctx, svcclient.Request{Method: "PATCH", Path: fmt.Sprintf("/datasets/%s", metaxID), JSON: partial})
	return err
}

func (c *Client) UpdateDescription(ctx context.Context, metaxID, description string) error {
	return c.Patch(ctx, metaxID, map[string]interface{}{
		"description": map[string]string{"en": description},
	})
}

func (c *Client) Publish(ctx context.Context, metaxID, doi string) (map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   fmt.Sprintf("/datasets/%s/publish", metaxID),
		JSON:   map[string]interface{}{"persistent_identifier": doi},
	})
	if err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

func (c *Client) Delete(ctx context.Context, metaxID string) error {
	_, err := c.sc.Do(ctx, svcclient.Request{Method: "DELETE", Path: fmt.Sprintf("/datasets/%s", metaxID)})
	return err
}

// GetFieldsOfScience returns the cached reference-data list, fetching
// from Metax on a cold cache and holding it for a week. internal/
// metaxmapper.Mapper.SetMetaxFieldsOfScience wires a Client here as the
// cold-path fallback for subjects the embedded taxonomy snapshot can't
// resolve.
func (c *Client) GetFieldsOfScience(ctx context.Context) ([]map[string]interface{}, error) {
	const key = "fields-of-science"
	if v, ok := c.cache.Get(key); ok {
		return v.([]map[string]interface{}), nil
	}
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   "reference-data/fields-of-science",
		Query:  map[string]string{"limit": "1000"},
	})
	if err != nil {
		return nil, err
	}
	results, _ := resp.JSON["results"].([]interface{})
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		if m, ok := r.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	c.cache.Set(key, out, fieldsOfScienceTTL)
	return out, nil
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
