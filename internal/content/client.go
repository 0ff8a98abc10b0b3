// Package content talks to the remote content service: listing stored items,
// resolving playable file URLs and submitting uploads.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gizzletv/client/internal/models"
	"github.com/gizzletv/client/internal/upload"
)

var (
	// ErrRejected indicates the service answered with a non-success status.
	ErrRejected = errors.New("content service rejected request")
	// ErrUnhealthy indicates the health endpoint did not report healthy.
	ErrUnhealthy = errors.New("content service unhealthy")
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is a thin JSON client for the content service. Its base URL includes
// the API prefix, e.g. http://localhost:8001/api.
type Client struct {
	baseURL string
	http    *http.Client
	// uploads share the transport but carry no overall timeout; they are
	// bounded by their context alone.
	uploads *http.Client
	logger  *slog.Logger
}

var _ upload.Transport = (*Client)(nil)

// NewClient returns a client for baseURL. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		uploads: &http.Client{Transport: httpClient.Transport, Jar: httpClient.Jar},
		logger:  logger,
	}
}

// List returns the records stored under category.
func (c *Client) List(ctx context.Context, category upload.Category) ([]models.ContentRecord, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("list content: %w: %q", upload.ErrUnknownCategory, category)
	}

	var records []models.ContentRecord
	if err := c.getJSON(ctx, "/content/"+url.PathEscape(string(category)), &records); err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}
	if records == nil {
		records = []models.ContentRecord{}
	}
	return records, nil
}

// FileURL returns the streaming location of a stored file, suitable as a
// player source.
func (c *Client) FileURL(filename string) string {
	return c.baseURL + "/content/file/" + url.PathEscape(filename)
}

// Health checks that the service is reachable and reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var status models.HealthStatus
	if err := c.getJSON(ctx, "/health", &status); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if status.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, status.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("content service response", "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// rejection converts a non-2xx response into an error carrying the service's
// detail message when one is present.
func rejection(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload models.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return fmt.Errorf("%w: %s (status %d)", ErrRejected, payload.Detail, resp.StatusCode)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: %s (status %d)", ErrRejected, text, resp.StatusCode)
}
