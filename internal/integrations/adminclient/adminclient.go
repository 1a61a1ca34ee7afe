// Package adminclient is a thin facade over the CSC admin API used for
// bucket listing/creation, grounded on original_source/metadata_backend/
// conf/admin.py and services/admin_service.py. Supplements spec.md §2's
// "simple AdminClient" with the operations the bucket-oriented endpoints
// in spec.md §6 need.
package adminclient

import (
	"context"
	"fmt"

	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

type Client struct {
	sc *svcclient.ServiceClient
}

func New(baseURL string) *Client {
	return &Client{sc: svcclient.New(svcclient.Config{
		Name:       "admin",
		BaseURL:    baseURL,
		HealthPath: "/health",
	})}
}

func (c *Client) ListBuckets(ctx context.Context, projectID string) ([]string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   "/buckets",
		Query:  map[string]string{"projectId": projectID},
	})
	if err != nil {
		return nil, err
	}
	raw, _ := resp.JSON["buckets"].([]interface{})
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

func (c *Client) CreateBucketPolicy(ctx context.Context, bucket, projectID string) error {
	_, err := c.sc.Do(ctx, svcclient.Request{
		Method: "PUT",
		Path:   fmt.Sprintf("/buckets/%s", bucket),
		JSON:   map[string]interface{}{"projectId": projectID},
	})
	return err
}

func (c *Client) HasBucketPolicy(ctx context.Context, bucket, projectID string) (bool, error) {
	_, err := c.sc.Do(ctx, svcclient.Request{
		Method: "HEAD",
		Path:   fmt.Sprintf("/buckets/%s", bucket),
		Query:  map[string]string{"projectId": projectID},
	})
	return err == nil, nil
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
