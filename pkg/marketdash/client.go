// Package marketdash is a Go client for the marketdash-server HTTP API.
package marketdash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketdash/internal/controller"
	"marketdash/internal/httpapi"
)

type (
	Snapshot       = controller.Snapshot
	ErrorReport    = controller.ErrorReport
	SearchResponse = httpapi.SearchResponse
	HealthResponse = httpapi.HealthResponse
)

// APIError is returned for any non-2xx response. Report is set when the
// server attached a controller error report, as a failed selection does.
type APIError struct {
	StatusCode int
	Message    string
	Report     *ErrorReport
}

func (e *APIError) Error() string {
	if e.Report != nil {
		return fmt.Sprintf("marketdash: %d: %s (%s)", e.StatusCode, e.Message, e.Report.Reason)
	}
	return fmt.Sprintf("marketdash: %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the marketdash-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new marketdash API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health retrieves the server health summary.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot retrieves the current dashboard state.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/snapshot", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a symbol search and returns the resulting term and matches.
func (c *Client) Search(ctx context.Context, term string) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(term), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Select loads the detail for symbol and returns the snapshot holding it.
// A failed load returns an *APIError whose Report explains the failure.
func (c *Client) Select(ctx context.Context, symbol string) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodPut, "/api/selection/"+url.PathEscape(symbol), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearSelection drops the current selection.
func (c *Client) ClearSelection(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodDelete, "/api/selection", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stream opens the snapshot websocket. The returned channel receives every
// snapshot the server sends and is closed when ctx ends or the connection
// drops.
func (c *Client) Stream(ctx context.Context) (<-chan Snapshot, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/stream"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("dialing stream: %w", err)
	}

	out := make(chan Snapshot)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var snap Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var e httpapi.SelectionErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{StatusCode: status, Message: msg}
	}
	return &APIError{StatusCode: status, Message: e.Error, Report: e.Report}
}
