// Package transport provides the HTTP client shared by every source client,
// with pluggable authentication and JSON request/response handling.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/toparuz/marketsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
	auth Authenticator
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: auth,
	}
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)

	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// JSON performs a request with a JSON-encoded body. A nil body sends an
// empty JSON object, which the marketplace paging endpoints expect.
func (c *Client) JSON(ctx context.Context, method, url string, body any) (*http.Response, error) {
	if body == nil {
		body = struct{}{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", "request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
