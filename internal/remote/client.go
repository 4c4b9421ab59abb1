// Package remote is the HTTP client for the restaurant notification service.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/model"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the service root, e.g. "https://api.example.com/v1".
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds every request. Zero means 10 seconds.
	Timeout time.Duration

	// HTTPClient is used for all requests. If nil, a client with Timeout is built.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client implements notify.Remote over HTTP JSON.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger.Named("remote"),
	}, nil
}

// FetchNotifications returns the tenant's notification feed.
func (c *Client) FetchNotifications(ctx context.Context, restaurantID string) ([]model.RemoteNotification, error) {
	const op = "remote.fetch_notifications"
	path := "/restaurants/" + url.PathEscape(restaurantID) + "/notifications"

	body, err := c.doRequest(ctx, op, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var list []model.RemoteNotification
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, model.WrapError(model.CodeRemoteUnavailable, op, fmt.Errorf("decode response: %w", err))
	}
	return list, nil
}

// PushNotificationRead tells the service a notification was read.
func (c *Client) PushNotificationRead(ctx context.Context, notificationID string) error {
	const op = "remote.push_notification_read"
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"

	_, err := c.doRequest(ctx, op, http.MethodPut, path)
	return err
}

// doRequest performs a request bounded by the client timeout.
// Transport failures and non-2xx responses become REMOTE_UNAVAILABLE.
func (c *Client) doRequest(ctx context.Context, op, method, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, model.WrapError(model.CodeRemoteUnavailable, op, fmt.Errorf("create request: %w", err))
	}
	request.Header.Set("Accept", "application/json")
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, model.WrapError(model.CodeRemoteUnavailable, op,
			fmt.Errorf("request to %s %s failed: %w", method, path, err))
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, model.WrapError(model.CodeRemoteUnavailable, op, fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug("remote call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, model.NewError(model.CodeRemoteUnavailable, op,
			"unexpected %d response from %s %s: %s", response.StatusCode, method, path, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
