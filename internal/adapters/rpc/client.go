package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client sends JSON-RPC 2.0 batches to a single node endpoint
type Client struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

// NewClient creates a client for the node RPC URL
func NewClient(url string, log *slog.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log.With("component", "RPCClient"),
	}
}

// NewNodeClient creates a client for the configured node
func NewNodeClient(cfg *domain.Config, log *slog.Logger) *Client {
	return NewClient(cfg.Env.Node.RPCURL, log)
}

// URL returns the endpoint the client posts to
func (c *Client) URL() string {
	return c.url
}

// Call sends method as a one-element batch and returns the single response.
// The error member of the response is returned as-is.
func (c *Client) Call(ctx context.Context, method string, params ...any) (*domain.RPCResponse, error) {
	responses, err := c.Batch(ctx, domain.RPCCall{Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("empty batch response for %s", method)
	}
	return &responses[0], nil
}

// Batch sends calls in one request. Request ids are 1..len(calls).
func (c *Client) Batch(ctx context.Context, calls ...domain.RPCCall) ([]domain.RPCResponse, error) {
	if len(calls) == 0 {
		return nil, errors.New("no calls in batch")
	}

	requests := make([]domain.RPCRequest, len(calls))
	for i, call := range calls {
		params := call.Params
		if params == nil {
			params = []any{}
		}
		requests[i] = domain.RPCRequest{
			Jsonrpc: "2.0",
			ID:      i + 1,
			Method:  call.Method,
			Params:  params,
		}
	}

	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("rpc request", "methods", len(calls), "first", calls[0].Method)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var responses []domain.RPCResponse
	if err := json.Unmarshal(respBody, &responses); err != nil {
		return nil, fmt.Errorf("failed to parse RPC response (status %d): %w", resp.StatusCode, err)
	}
	return responses, nil
}
