// Package remote implements the upstream adapter for the public todo REST API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/metrics"
	"github.com/todomirror/todomirror/internal/mirror/schema"
)

const (
	// DefaultBaseURL is the public API the mirror is filled from.
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"

	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of an upstream response is read.
	maxBodyBytes = 16 << 20
)

// StatusError reports a non-success HTTP status from the upstream API.
type StatusError struct {
	Op         string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Config holds client configuration.
type Config struct {
	// BaseURL of the upstream API, without the /todos suffix (default: DefaultBaseURL)
	BaseURL string

	// Timeout per upstream request (default: DefaultTimeout)
	Timeout time.Duration

	// HTTPClient overrides the client used for requests (default: a client with Timeout)
	HTTPClient *http.Client

	// Logger for upstream activity (default: stderr logger)
	Logger *log.Logger
}

// Client fetches task records from the upstream API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote base URL %q: scheme must be http or https", base)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAll retrieves the full upstream collection in a single call.
//
// Any transport failure, non-2xx status, or undecodable or invalid payload is
// returned as an error. An empty collection is not an error.
func (c *Client) FetchAll(ctx context.Context) ([]schema.Task, error) {
	endpoint := c.baseURL + "/todos"

	body, err := c.get(ctx, "list", endpoint)
	if err != nil {
		return nil, err
	}

	tasks, err := schema.DecodeTasks(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}

	c.logger.Printf("Fetched %d tasks from %s", len(tasks), endpoint)
	return tasks, nil
}

// FetchFiltered retrieves the full collection and keeps tasks whose title
// contains filter, ignoring case.
func (c *Client) FetchFiltered(ctx context.Context, filter string) ([]schema.Task, error) {
	tasks, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return tasks, nil
	}

	filtered := schema.FilterByTitle(tasks, filter)
	c.logger.Printf("Filtered %d tasks by title %q", len(filtered), filter)
	return filtered, nil
}

// FetchByID retrieves one task.
// A 404 from upstream is reported as schema.ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id int) (*schema.Task, error) {
	endpoint := c.baseURL + "/todos/" + strconv.Itoa(id)

	body, err := c.get(ctx, "get", endpoint)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			c.logger.Printf("Task %d not found upstream", id)
			return nil, fmt.Errorf("task %d: %w", id, schema.ErrNotFound)
		}
		return nil, err
	}

	task, err := schema.DecodeTask(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return task, nil
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(op, 0)
		return nil, fmt.Errorf("failed to GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.ObserveUpstream(op, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Op: "GET", URL: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	return body, nil
}
