// Package remsclient implements the REMS entitlement service client,
// grounded on original_source/metadata_backend/services/rems_service.py:
// x-rems-api-key/x-rems-user-id headers, workflow validation before
// resource creation, and discovery/application URL derivation by
// substituting a configured prefix.
package remsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

type Client struct {
	sc           *svcclient.ServiceClient
	remsURL      string
	discoveryURL string
}

func New(baseURL, apiKey, userID, discoveryURL string) *Client {
	sc := svcclient.New(svcclient.Config{
		Name:    "rems",
		BaseURL: strings.TrimRight(baseURL, "/") + "/api",
		DefaultHeaders: map[string]string{
			"x-rems-api-key":  apiKey,
			"x-rems-user-id":  userID,
			"accept":          "application/json",
		},
		HealthPath: "/health",
	})
	return &Client{sc: sc, remsURL: baseURL, discoveryURL: discoveryURL}
}

// GetDiscoveryURL derives a REMS discovery URL by appending the
// identifier to the configured discovery prefix.
func (c *Client) GetDiscoveryURL(id string) string {
	return strings.TrimRight(c.discoveryURL, "/") + "/" + id
}

// GetApplicationURL derives the URL used for the catalogue item's
// "apply" link.
func (c *Client) GetApplicationURL(catalogueID int) string {
	return fmt.Sprintf("%s/application?items=%d", strings.TrimRight(c.remsURL, "/"), catalogueID)
}

func (c *Client) GetWorkflows(ctx context.Context) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/workflows", map[string]string{"disabled": "false", "archived": "false"})
}

func (c *Client) GetLicenses(ctx context.Context) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/licenses", nil)
}

func (c *Client) GetResources(ctx context.Context, doi string) ([]map[string]interface{}, error) {
	query := map[string]string{}
	if doi != "" {
		query["resid"] = doi
	}
	return c.getList(ctx, "/resources", query)
}

func (c *Client) GetWorkflow(ctx context.Context, orgID string, workflowID int) (map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{Method: "GET", Path: fmt.Sprintf("/workflows/%d", workflowID)})
	if err != nil {
		if apperr.Is(err, apperr.KindUpstreamClient) {
			return nil, apperr.NewUser("unknown REMS workflow")
		}
		return nil, err
	}
	org := orgAttribute(resp.JSON, "organization")
	if org != "" && org != orgID {
		return nil, apperr.NewUser("REMS workflow belongs to a different organization")
	}
	return resp.JSON, nil
}

func (c *Client) GetLicense(ctx context.Context, orgID string, licenseID int) (map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{Method: "GET", Path: fmt.Sprintf("/licenses/%d", licenseID)})
	if err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

func (c *Client) GetCatalogueItem(ctx context.Context, id int) (map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{Method: "GET", Path: fmt.Sprintf("/catalogue-items/%d", id)})
	if err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

// CreateResource validates the workflow belongs to orgID, then creates a
// REMS resource for doi under the given licenses.
func (c *Client) CreateResource(ctx context.Context, orgID string, workflowID int, licenseIDs []int, doi string) (int, error) {
	if _, err := c.GetWorkflow(ctx, orgID, workflowID); err != nil {
		return 0, err
	}
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   "/resources/create",
		JSON: map[string]interface{}{
			"resid":       doi,
			"organization": map[string]string{"organization/id": orgID},
			"licenses":    licenseIDs,
		},
	})
	if err != nil {
		return 0, err
	}
	id, ok := numberField(resp.JSON, "id")
	if !ok {
		return 0, apperr.UpstreamError("rems", 502, "resource creation response missing id")
	}
	return id, nil
}

func (c *Client) CreateCatalogueItem(ctx context.Context, orgID string, workflowID, resourceID int, title, discoveryURL string) (int, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "POST",
		Path:   "/catalogue-items/create",
		JSON: map[string]interface{}{
			"resid":        resourceID,
			"wfid":         workflowID,
			"organization": map[string]string{"organization/id": orgID},
			"localizations": map[string]interface{}{
				"en": map[string]string{"title": title, "infourl": discoveryURL},
			},
		},
	})
	if err != nil {
		return 0, err
	}
	id, ok := numberField(resp.JSON, "id")
	if !ok {
		return 0, apperr.UpstreamError("rems", 502, "catalogue item creation response missing id")
	}
	return id, nil
}

func (c *Client) getList(ctx context.Context, path string, query map[string]string) ([]map[string]interface{}, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{Method: "GET", Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	items := resp.Array
	if items == nil {
		items, _ = resp.JSON["items"].([]interface{})
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func orgAttribute(m map[string]interface{}, key string) string {
	org, _ := m[key].(map[string]interface{})
	id, _ := org["organization/id"].(string)
	return id
}

func numberField(m map[string]interface{}, key string) (int, bool) {
	v, ok := m[key].(float64)
	return int(v), ok
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
