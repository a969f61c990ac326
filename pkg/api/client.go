// Package api implements the HTTP side of the shoginet protocol: URL
// construction, the acquire/report calls and their status-code
// classification.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPTimeout bounds every server interaction.
const HTTPTimeout = 15 * time.Second

// updateSentinel is the server's request that this client be upgraded.
const updateSentinel = "Please restart shoginet to upgrade."

// ErrUpdateRequired is raised when the server signals that this client
// version is no longer accepted. The process exits with code 70.
var ErrUpdateRequired = errors.New("update required: " + updateSentinel)

// Client posts to a shoginet endpoint. The endpoint is a http(s) base URL
// with a trailing slash.
type Client struct {
	endpoint *url.URL
	http     *http.Client
}

// NewClient validates the endpoint and returns a client with the standard
// timeout.
func NewClient(endpoint string) (*Client, error) {
	u, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: u,
		http:     &http.Client{Timeout: HTTPTimeout},
	}, nil
}

// ParseEndpoint validates the scheme and ensures a trailing slash.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q does not have http:// or https:// URL scheme", endpoint)
	}
	return u, nil
}

// URL joins the endpoint with a relative path.
func (c *Client) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.endpoint.String() + path
	}
	return c.endpoint.ResolveReference(ref).String()
}

// BaseURL returns "scheme://host/" of the endpoint, used for display.
func (c *Client) BaseURL() string {
	return fmt.Sprintf("%v://%v/", c.endpoint.Scheme, c.endpoint.Hostname())
}

// Response is a classified server response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// NoJob reports 204: nothing to do.
func (r *Response) NoJob() bool {
	return r.StatusCode == http.StatusNoContent
}

// JobAccepted reports 202: the body is the next job.
func (r *Response) JobAccepted() bool {
	return r.StatusCode == http.StatusAccepted
}

// ServerError reports a 5xx status.
func (r *Response) ServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode <= 599
}

// ClientError reports a 4xx status.
func (r *Response) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode <= 499
}

// RateLimited reports 429.
func (r *Response) RateLimited() bool {
	return r.StatusCode == http.StatusTooManyRequests
}

// JSON unmarshals the response body.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// UpdateRequested inspects a 4xx body for the server's upgrade request
// and returns ErrUpdateRequired if present. The error message, if any,
// is returned for logging either way.
func (r *Response) UpdateRequested() (string, error) {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil || body.Error == "" {
		return "", nil
	}
	if strings.Contains(body.Error, updateSentinel) {
		return body.Error, ErrUpdateRequired
	}
	return body.Error, nil
}

// Post marshals body and POSTs it to the path. stop adds the stop=true
// query parameter, announcing that the worker is exiting.
func (c *Client) Post(ctx context.Context, path string, stop bool, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %v request: %w", path, err)
	}
	return c.PostBytes(ctx, path, stop, data)
}

// PostBytes POSTs a pre-marshaled JSON body.
func (c *Client) PostBytes(ctx context.Context, path string, stop bool, data []byte) (*Response, error) {
	target := c.URL(path)
	if stop {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + "stop=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Body: payload}, nil
}

// ValidateKey checks the API key against the server: 200 is valid, 404 is
// invalid or inactive.
func (c *Client) ValidateKey(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("key/"+key), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected HTTP status for key validation: %v", resp.Status)
	}
}
