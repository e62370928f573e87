// Package graphcool talks to a Graphcool project: the Simple API for users and
// Auth0 identities, and the System API for node tokens.
package graphcool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Graphcool reports unique constraint violations with this code
const uniqueConstraintCode = 3010

// Client is a Graphcool API client. It implements the store.Repository
// capabilities and token issuance.
type Client struct {
	simpleURL  string
	systemURL  string
	serviceID  string
	rootToken  string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client for API calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewClient creates a client for one Graphcool service.
// simpleAPIURL is the Simple API root; the service id is appended to it.
func NewClient(simpleAPIURL, systemAPIURL, serviceID, rootToken string, opts ...Option) *Client {
	c := &Client{
		simpleURL:  strings.TrimRight(simpleAPIURL, "/") + "/" + serviceID,
		systemURL:  systemAPIURL,
		serviceID:  serviceID,
		rootToken:  rootToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is a GraphQL request under construction
type request struct {
	body []byte
	err  error
}

func newRequest(query string) *request {
	body, err := sjson.SetBytes([]byte(`{}`), "query", query)
	return &request{body: body, err: err}
}

func (r *request) variable(name string, value interface{}) *request {
	if r.err != nil {
		return r
	}
	r.body, r.err = sjson.SetBytes(r.body, "variables."+name, value)
	return r
}

// post sends a GraphQL request and returns the "data" member of the response
func (c *Client) post(ctx context.Context, url string, authorized bool, req *request) (gjson.Result, error) {
	if req.err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build graphql request: %w", req.err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create graphql request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if authorized {
		httpReq.Header.Set("Authorization", "Bearer "+c.rootToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to make graphql request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read graphql response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("malformed graphql response (status %d): %s", resp.StatusCode, truncate(body))
	}

	result := gjson.ParseBytes(body)
	if errs := result.Get("errors"); errs.Exists() && len(errs.Array()) > 0 {
		for _, e := range errs.Array() {
			if e.Get("code").Int() == uniqueConstraintCode {
				return gjson.Result{}, idmerrors.Wrap(fmt.Errorf("graphql errors: %s", errs.Raw), idmerrors.ErrCodeAlreadyExists, "unique constraint violated")
			}
		}
		return gjson.Result{}, fmt.Errorf("graphql errors: %s", errs.Raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("graphql request failed with status %d: %s", resp.StatusCode, truncate(body))
	}

	data := result.Get("data")
	if data.Type == gjson.Null {
		return gjson.Result{}, fmt.Errorf("graphql response has no data")
	}
	return data, nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
