// Package rorclient implements ROR organisation lookup, grounded on
// original_source/metadata_backend/services/ror_service.py: an OR-phrase
// query, single-item-wins resolution, else a normalized exact match
// against the candidate ror_display names, cached for a week.
package rorclient

import (
	"context"
	"regexp"
	"strings"

	"github.com/CSCfi/metadata-submitter-sub002/internal/cache"
	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

const cacheTTLSeconds = 7 * 24 * 60 * 60 // one week

var nonWord = regexp.MustCompile(`[^\w]+`)

type Client struct {
	sc    *svcclient.ServiceClient
	cache *cache.TTLCache
}

func New(baseURL string, c *cache.TTLCache) *Client {
	sc := svcclient.New(svcclient.Config{
		Name:       "ror",
		BaseURL:    baseURL,
		HealthPath: "/heartbeat",
		HealthClassify: func(status int, body []byte) (svcclient.Health, error) {
			if strings.TrimSpace(string(body)) == "OK" {
				return svcclient.HealthUP, nil
			}
			return svcclient.HealthDegraded, nil
		},
	})
	return &Client{sc: sc, cache: c}
}

// IsRorOrganisation returns the canonical ror_display name for
// organisation, or "" if no single exact match can be resolved.
func (c *Client) IsRorOrganisation(ctx context.Context, organisation string) (string, error) {
	key := "ror:" + organisation
	v, err := c.cache.GetOrLoad(ctx, key, cacheTTLSeconds, func(ctx context.Context) (interface{}, error) {
		return c.lookup(ctx, organisation)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) lookup(ctx context.Context, organisation string) (string, error) {
	resp, err := c.sc.Do(ctx, svcclient.Request{
		Method: "GET",
		Path:   "/organizations",
		Query:  map[string]string{"query": `"` + organisation + `"`},
	})
	if err != nil {
		return "", err
	}

	items, _ := resp.JSON["items"].([]interface{})
	names := make([]string, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := m["ror_display"].(string); ok {
			names = append(names, name)
		}
	}

	if len(names) == 1 {
		return names[0], nil
	}
	if len(names) == 0 {
		return "", nil
	}

	normalizedTarget := normalize(organisation)
	match := ""
	matches := 0
	for _, n := range names {
		if normalize(n) == normalizedTarget {
			match = n
			matches++
		}
	}
	if matches == 1 {
		return match, nil
	}
	return "", nil
}

func normalize(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "")
}

func (c *Client) Health(ctx context.Context) svcclient.Health {
	return c.sc.Health(ctx)
}
