// Package svcclient implements the generic outbound HTTP client every
// external integration (PID, DataCite, Metax, REMS, ROR, admin, keystone)
// is built on: retry with exponential backoff, a closed error taxonomy,
// and a health probe. Grounded on the teacher's http.Execute/calculateBackoff
// shape and on original_source/metadata_backend/services/service_handler.py
// + retry.py, generalized to a typed-error result instead of raised
// HTTPError subclasses.
package svcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/obs"
)

const (
	totalAttempts  = 5
	initialWait    = 500 * time.Millisecond
	backoffFactor  = 2
	defaultTimeout = 10 * time.Second
	healthTimeout  = 2 * time.Second
)

// BasicAuth holds optional HTTP basic-auth credentials for a client.
type BasicAuth struct {
	Username string
	Password string
}

// Config configures a ServiceClient instance.
type Config struct {
	Name           string // service name, used in error messages and logs
	BaseURL        string
	Auth           *BasicAuth
	DefaultHeaders map[string]string
	Timeout        time.Duration // per-attempt timeout, default 10s
	Disabled       bool          // ConfigError is returned on every call if true

	HealthPath     string
	HealthTimeout  time.Duration // default 2s
	HealthClassify func(status int, body []byte) (Health, error)
}

// Health is the reduced status of a single integration's probe.
type Health string

const (
	HealthUP       Health = "UP"
	HealthDOWN     Health = "DOWN"
	HealthDegraded Health = "DEGRADED"
	HealthError    Health = "ERROR"
)

// Response is a decoded outbound HTTP response: Body holds the raw
// payload and JSON holds the parsed document when the content type is
// JSON, mirroring service_handler.py's json-vs-text content-type branch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	JSON       map[string]interface{} // populated when the decoded body is a JSON object
	Array      []interface{}          // populated when the decoded body is a JSON array
	IsJSON     bool
}

// ServiceClient is a uniform outbound HTTP client shared by every
// integration facade in internal/integrations.
type ServiceClient struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *ServiceClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = healthTimeout
	}
	return &ServiceClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Request describes a single outbound call. Path is joined onto BaseURL
// unless it already looks like an absolute URL.
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	JSON    interface{} // marshaled as the request body with Content-Type: application/json
	Raw     []byte      // used instead of JSON when set
	Timeout time.Duration
}

// Do executes req with the client's retry policy and returns the decoded
// response or a typed *apperr.Error.
func (c *ServiceClient) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Disabled {
		return nil, apperr.New(apperr.KindConfig, fmt.Sprintf("%s: service disabled by configuration", c.cfg.Name))
	}

	var lastErr error
	wait := initialWait
	for attempt := 0; attempt < totalAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperr.UpstreamTimeout(c.cfg.Name, ctx.Err())
			case <-time.After(wait):
			}
			wait *= backoffFactor
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}

		ae := &apperr.Error{}
		if errors.As(err, &ae) {
			if !ae.Retryable() {
				return nil, err
			}
		}
		lastErr = err
		obs.Log.WithField("service", c.cfg.Name).WithField("attempt", attempt+1).WithError(err).Warn("upstream call failed, retrying")
	}
	return nil, lastErr
}

func (c *ServiceClient) doOnce(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.resolveURL(req.Path, req.Query)

	var bodyReader io.Reader
	var contentType string
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindSystem, "marshal request body", err)
		}
		bodyReader = bytes.NewReader(b)
		contentType = "application/json"
	} else if req.Raw != nil {
		bodyReader = bytes.NewReader(req.Raw)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, url, bodyReader)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "build request", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.cfg.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.cfg.Auth != nil {
		httpReq.SetBasicAuth(c.cfg.Auth.Username, c.cfg.Auth.Password)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() != nil {
			return nil, apperr.UpstreamTimeout(c.cfg.Name, err)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamServer, err.Error(), err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamServer, "read response body", err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}
	ct := httpResp.Header.Get("Content-Type")
	if strings.Contains(ct, "json") && len(raw) > 0 {
		var parsedObj map[string]interface{}
		var parsedArr []interface{}
		switch {
		case json.Unmarshal(raw, &parsedObj) == nil:
			resp.JSON = parsedObj
			resp.IsJSON = true
		case json.Unmarshal(raw, &parsedArr) == nil:
			resp.Array = parsedArr
			resp.IsJSON = true
		case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 && requiresJSON(req.Method):
			return resp, apperr.UpstreamError(c.cfg.Name, 502, "malformed JSON response")
		}
	}

	if httpResp.StatusCode >= 500 {
		return resp, apperr.UpstreamError(c.cfg.Name, httpResp.StatusCode, string(raw))
	}
	if httpResp.StatusCode >= 400 {
		return resp, apperr.UpstreamError(c.cfg.Name, httpResp.StatusCode, string(raw))
	}
	return resp, nil
}

// requiresJSON reports whether, on this method, a 2xx body labelled as JSON
// that fails to parse is a server fault. A body whose Content-Type is not
// JSON is returned as text for every method.
func requiresJSON(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func (c *ServiceClient) resolveURL(path string, query map[string]string) string {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		first := !strings.Contains(url, "?")
		for k, v := range query {
			sep := "&"
			if first {
				sep = "?"
				first = false
			}
			url += sep + k + "=" + v
		}
	}
	return url
}

// Health probes the configured health endpoint and classifies the result.
// A disabled client reports ERROR rather than panicking on a nil BaseURL.
func (c *ServiceClient) Health(ctx context.Context) Health {
	if c.cfg.Disabled || c.cfg.HealthPath == "" {
		return HealthError
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	resp, err := c.doOnce(ctx, Request{Method: http.MethodGet, Path: c.cfg.HealthPath})
	if err != nil {
		return HealthDown(err)
	}
	if c.cfg.HealthClassify != nil {
		h, err := c.cfg.HealthClassify(resp.StatusCode, resp.Body)
		if err != nil {
			return HealthError
		}
		return h
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return HealthUP
	}
	return HealthDegraded
}

// HealthDown classifies a probe error: a server-side or timeout failure is
// DOWN, anything else is ERROR.
func HealthDown(err error) Health {
	if apperr.Is(err, apperr.KindUpstreamServer) || apperr.Is(err, apperr.KindUpstreamTimeout) {
		return HealthDOWN
	}
	return HealthError
}
