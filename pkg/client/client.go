// Package client provides the HTTP client a coordinator uses to talk to the
// shard engines of a cluster.
//
// A Client is bound to a single engine. It implements traversal.EngineClient,
// so it can be registered directly on a traversal.FanOut, and it also exposes
// the edge write endpoints used to load data into the shard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

// DefaultTimeout bounds a single request when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// --- Custom Errors ---

// APIError represents an error returned by a shard engine (status >= 400).
type APIError struct {
	StatusCode int
	ErrorNum   int
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorNum != 0 {
		return fmt.Sprintf("API error (status %d, errorNum %d): %s", e.StatusCode, e.ErrorNum, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// InsertResult is the body of a successful edge insert.
type InsertResult struct {
	ID  string `json:"_id"`
	Ref string `json:"_ref"`
}

// --- Client ---

// Client talks to one shard engine.
type Client struct {
	id         string
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout. The http.Client in place is copied,
// so one passed through WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// New creates a client for the engine id reachable at baseURL. token, when
// not empty, is sent as a bearer token.
func New(id, baseURL, token string, opts ...Option) *Client {
	c := &Client{
		id:         id,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the engine id the client was created for.
func (c *Client) ID() string { return c.id }

// jsonRequest executes one request against the engine. It handles JSON
// serialization, authentication and error bodies.
func (c *Client) jsonRequest(ctx context.Context, method, endpoint, requestID string, payload any) ([]byte, error) {
	var reqBody io.Reader
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		reqBody = bytes.NewReader(p)
	default:
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp shard.ErrorBody
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error {
			return nil, &APIError{StatusCode: resp.StatusCode, ErrorNum: errResp.ErrorNum, Message: errResp.ErrorMessage}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// --- Traversal ---

// ReadEdges asks the engine for the edges of one vertex at one depth.
func (c *Client) ReadEdges(ctx context.Context, database string, req *shard.EdgeRequest) (*shard.EdgeResponse, error) {
	endpoint := "/_db/" + url.PathEscape(database) + "/_internal/traverser/edge"
	respBody, err := c.jsonRequest(ctx, http.MethodPut, endpoint, req.RequestID, req)
	if err != nil {
		return nil, err
	}
	var resp shard.EdgeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for ReadEdges: %w", err)
	}
	return &resp, nil
}

// --- Edge writes ---

// InsertEdge stores raw in the named edge collection.
func (c *Client) InsertEdge(ctx context.Context, database, collection string, raw json.RawMessage) (*InsertResult, error) {
	endpoint := "/_db/" + url.PathEscape(database) + "/_api/edge/" + url.PathEscape(collection)
	respBody, err := c.jsonRequest(ctx, http.MethodPost, endpoint, "", raw)
	if err != nil {
		return nil, err
	}
	var res InsertResult
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("invalid JSON response for InsertEdge: %w", err)
	}
	return &res, nil
}

// RemoveEdge soft-deletes the edge collection/key.
func (c *Client) RemoveEdge(ctx context.Context, database, collection, key string) error {
	endpoint := "/_db/" + url.PathEscape(database) + "/_api/edge/" + url.PathEscape(collection) + "/" + url.PathEscape(key)
	_, err := c.jsonRequest(ctx, http.MethodDelete, endpoint, "", nil)
	return err
}

// RemoveEdgeByID soft-deletes the edge with the external id "collection/key".
func (c *Client) RemoveEdgeByID(ctx context.Context, database, id string) error {
	collection, key, ok := strings.Cut(id, "/")
	if !ok || collection == "" || key == "" {
		return fmt.Errorf("%w: bad edge id %q", document.ErrMalformed, id)
	}
	return c.RemoveEdge(ctx, database, collection, key)
}

// Health reports whether the engine answers its health check.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.jsonRequest(ctx, http.MethodGet, "/healthz", "", nil)
	return err
}
