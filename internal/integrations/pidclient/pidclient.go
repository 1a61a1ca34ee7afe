// Package pidclient implements the CSC PID proxy's DoiRegistry, grounded
// on original_source/metadata_backend/services/pid_service.py:
// draft creation posts a blank DOI to v1/pid/doi, publish PUTs to
// v1/pid/doi/{doi}, get returns a bare discovery URL string, and there
// is no delete endpoint.
package pidclient

import (
	"context"
	"fmt"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

type Client struct {
	sc *svcclient.ServiceClient
}

func New(baseURL, apiKey string) *Client {
	sc := svcclient.New(svcclient.Config{
		Name:    "pid",
		BaseURL: baseURL,
		DefaultHeaders: map[string]string{
			"apikey":       apiKey,
			"Content-Type": "application/vnd.api+json",
		},
		HealthPath: "/q/health/live",
		HealthClassify: func(status int, body []byte) (svcclient.Health, error) {
			if status == 200 {
				return svcclient.HealthUP, nil
			}
			return svcclient.HealthDOWN, nil
		},
	})
	return &Client{sc: sc}
}

func (c *Client) CreateDraftDoi(ctx context.Context) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   "v1/pid/doi",
		JSON: map[string]interface{}{
			"data": map[string]interface{}{
				"type":       "dois",
				"attributes": map[string]interface{}{"doi": ""},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// Publish sets the discoveryUrl on the minted DOI. The PID proxy has no
// separate publish event; discoveryUrl is always required.
func (c *Client) Publish(ctx context.Context, doi string, metadata map[string]interface{}, discoveryURL string, requireFieldOfScience, publish bool) error {
	if discoveryURL == "" {
		return apperr.NewUser("PID publish requires a discovery URL")
	}
	_, err := c.sc.Do(ctx, svcclient.Request{
		Method: "PUT",
		Path:   fmt.Sprintf("v1/pid/doi/%s", doi),
		JSON: map[string]interface{}{
			"url": discoveryURL,
		},
	})
	return err
}

// Get returns the discovery URL registered for doi.
func (c *Client) Get(ctx context.Context, doi string) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   fmt.Sprintf("/get/v1/pid/%s", doi),
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

func (c *Client) Delete(ctx context.Context, doi string) error {
	return apperr.New(apperr.KindSystem, "PID proxy does not support delete")
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
