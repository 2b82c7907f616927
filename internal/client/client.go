// Package client talks to a running audioquery server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/plugin"
	"github.com/desertthunder/audioquery/internal/shared"
)

const defaultBaseURL = "http://127.0.0.1:3000"

// Client makes requests against the server's /call, /permission and /health endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. Empty values fall back to the default address and
// [http.DefaultClient].
func New(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: client}
}

// BaseURL builds the address of the server configured by c.
func BaseURL(c shared.ServerConfig) string {
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (c *Client) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*APIResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}
	return apiResp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, v any) (*APIResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.Post(ctx, path, data)
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Pending  []permissions.PendingRequest `json:"pending"`
	Handled  bool                         `json:"handled"`
	Status   string                       `json:"status"`
	Attached bool                         `json:"attached"`
}

func decode(resp *APIResponse) (envelope, error) {
	var env envelope
	if !resp.IsJSON {
		return env, fmt.Errorf("%w: status %d: %s", shared.ErrUnexpectedResponse, resp.StatusCode, bytes.TrimSpace(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	return env, nil
}

// Call sends call to the server and returns the plugin's response.
//
// Replies carrying an error code come back as a failed [plugin.Response], not an error. The
// error return is kept for transport failures and responses the server would never send.
func (c *Client) Call(ctx context.Context, call models.Call) (plugin.Response, error) {
	resp, err := c.postJSON(ctx, "/call", call)
	if err != nil {
		return plugin.Response{}, err
	}
	env, err := decode(resp)
	if err != nil {
		return plugin.Response{}, err
	}

	if env.Error != nil {
		if env.Error.Code == "TIMEOUT" {
			return plugin.Response{}, fmt.Errorf("%w: %s", shared.ErrTimeout, env.Error.Message)
		}
		return plugin.Response{
			Code:           env.Error.Code,
			Message:        env.Error.Message,
			Details:        env.Error.Details,
			NotImplemented: resp.StatusCode == http.StatusNotImplemented,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return plugin.Response{}, fmt.Errorf("%w: status %d", shared.ErrUnexpectedResponse, resp.StatusCode)
	}

	var value any
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &value); err != nil {
			return plugin.Response{}, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}
	}
	return plugin.Response{Value: value}, nil
}

// Pending lists the permission requests waiting for an operator.
func (c *Client) Pending(ctx context.Context) ([]permissions.PendingRequest, error) {
	resp, err := c.Get(ctx, "/permission")
	if err != nil {
		return nil, err
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, env); err != nil {
		return nil, err
	}
	return env.Pending, nil
}

// Resolve answers the permission request held under code.
//
// It wraps [permissions.ErrNoPendingRequest] when nothing waits on code.
func (c *Client) Resolve(ctx context.Context, code int, granted bool) (bool, error) {
	resp, err := c.postJSON(ctx, "/permission", map[string]any{"request_code": code, "granted": granted})
	if err != nil {
		return false, err
	}
	env, err := decode(resp)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, fmt.Errorf("%w: request code %d", permissions.ErrNoPendingRequest, code)
	}
	if err := statusError(resp, env); err != nil {
		return false, err
	}
	return env.Handled, nil
}

// Health reports whether the server is up and its plugin attached.
func (c *Client) Health(ctx context.Context) (bool, error) {
	resp, err := c.Get(ctx, "/health")
	if err != nil {
		return false, err
	}
	env, err := decode(resp)
	if err != nil {
		return false, err
	}
	if err := statusError(resp, env); err != nil {
		return false, err
	}
	return env.Attached, nil
}

func statusError(resp *APIResponse, env envelope) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if env.Error != nil {
		return fmt.Errorf("%w: %s: %s", shared.ErrUnexpectedResponse, env.Error.Code, env.Error.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrUnexpectedResponse, resp.StatusCode)
}
