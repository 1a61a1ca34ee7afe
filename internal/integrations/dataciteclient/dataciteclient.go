// Package dataciteclient implements DataCite's DoiRegistry, grounded on
// original_source/metadata_backend/services/datacite_service.py: JSON:API
// bodies under /dois, BasicAuth, a 2-minute client timeout, and
// Content-Type: application/vnd.api+json.
package dataciteclient

import (
	"context"
	"fmt"
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

type Client struct {
	sc     *svcclient.ServiceClient
	prefix string
}

func New(baseURL, user, key, prefix string) *Client {
	sc := svcclient.New(svcclient.Config{
		Name:    "datacite",
		BaseURL: baseURL,
		Auth:    &svcclient.BasicAuth{Username: user, Password: key},
		DefaultHeaders: map[string]string{
			"Content-Type": "application/vnd.api+json",
		},
		Timeout:    2 * time.Minute,
		HealthPath: "/heartbeat",
	})
	return &Client{sc: sc, prefix: prefix}
}

func (c *Client) CreateDraftDoi(ctx context.Context) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   "/dois",
		JSON: map[string]interface{}{
			"data": map[string]interface{}{
				"type":       "dois",
				"attributes": map[string]interface{}{"prefix": c.prefix},
			},
		},
	})
	if err != nil {
		return "", err
	}
	data, _ := resp.JSON["data"].(map[string]interface{})
	attrs, _ := data["attributes"].(map[string]interface{})
	doi, _ := attrs["doi"].(string)
	if doi == "" {
		return "", apperr.UpstreamError("datacite", 502, "response missing doi")
	}
	return doi, nil
}

func (c *Client) Publish(ctx context.Context, doi string, metadata map[string]interface{}, discoveryURL string, requireFieldOfScience, publish bool) error {
	attrs := map[string]interface{}{"url": discoveryURL}
	for k, v := range metadata {
		attrs[k] = v
	}
	if publish {
		attrs["event"] = "publish"
	}
	_, err := c.sc.Do(ctx, svcclient.Request{
		Method: "PUT",
		Path:   fmt.Sprintf("/dois/%s", doi),
		JSON: map[string]interface{}{
			"data": map[string]interface{}{
				"type":       "dois",
				"attributes": attrs,
			},
		},
	})
	return err
}

func (c *Client) Get(ctx context.Context, doi string) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   fmt.Sprintf("/dois/%s", doi),
		Query:  map[string]string{"publisher": "true", "affiliation": "true"},
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

func (c *Client) Delete(ctx context.Context, doi string) error {
	_, err := c.sc.Do(ctx, svcclient.Request{Method: "DELETE", Path: fmt.Sprintf("/dois/%s", doi)})
	return err
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
