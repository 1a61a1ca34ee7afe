// Package keystoneclient is a thin facade over the OpenStack Keystone
// identity API, used to resolve the object-storage project scope backing
// a submission's bucket (spec.md §2's "simple KeystoneClient";
// grounded on original_source/metadata_backend/conf/admin.py's keystone
// environment variables).
package keystoneclient

import (
	"context"

	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

type Client struct {
	sc *svcclient.ServiceClient
}

func New(baseURL string) *Client {
	return &Client{sc: svcclient.New(svcclient.Config{
		Name:       "keystone",
		BaseURL:    baseURL,
		HealthPath: "/v3",
	})}
}

// ProjectScope resolves the Keystone project id backing projectID's
// object-storage scope.
func (c *Client) ProjectScope(ctx context.Context, projectID string) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   "/v3/projects",
		Query:  map[string]string{"name": projectID},
	})
	if err != nil {
		return "", err
	}
	projects, _ := resp.JSON["projects"].([]interface{})
	for _, p := range projects {
		if m, ok := p.(map[string]interface{}); ok {
			if id, ok := m["id"].(string); ok {
				return id, nil
			}
		}
	}
	return "", nil
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
