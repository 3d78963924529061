package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/relengworks/shipit/pkg/models"
)

const defaultMaxRetries = 12

// Config holds the process-wide queue client configuration.
type Config struct {
	RootURL     string
	ClientID    string
	AccessToken string

	// MaxRetries bounds how often a transient submission failure is retried
	// before it is reported to the caller. Defaults to 12.
	MaxRetries int

	HTTPClient *http.Client
}

// Client submits task definitions to the queue service over HTTP. Transient
// failures (5xx, network errors) are retried with exponential backoff up to
// the configured bound; 4xx responses are reported immediately.
type Client struct {
	rootURL     string
	clientID    string
	accessToken string
	maxRetries  int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a queue client from the given configuration.
func NewClient(logger *slog.Logger, config Config) *Client {
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		rootURL:     strings.TrimRight(config.RootURL, "/"),
		clientID:    config.ClientID,
		accessToken: config.AccessToken,
		maxRetries:  maxRetries,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// CreateTask submits definition under taskID.
func (c *Client) CreateTask(ctx context.Context, taskID string, definition models.TaskDefinition) error {
	payload, err := json.Marshal(definition)
	if err != nil {
		return &Error{TaskID: taskID, Err: fmt.Errorf("failed to marshal task definition: %w", err)}
	}

	endpoint := c.rootURL + "/api/queue/v1/task/" + url.PathEscape(taskID)

	operation := func() (struct{}, error) {
		err := c.putTask(ctx, endpoint, taskID, payload)

		return struct{}{}, err
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries)),
	)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Task submitted", "task_id", taskID)

	return nil
}

func (c *Client) putTask(ctx context.Context, endpoint, taskID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(&Error{TaskID: taskID, Err: err})
	}

	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{TaskID: taskID, Err: err}
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return backoff.Permanent(&Error{TaskID: taskID, StatusCode: resp.StatusCode, Err: ErrTaskConflict})
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(&Error{TaskID: taskID, StatusCode: resp.StatusCode, Err: ErrTaskNotFound})
	case resp.StatusCode >= 500:
		// Transient; let the backoff policy retry.
		return &Error{TaskID: taskID, StatusCode: resp.StatusCode, Err: fmt.Errorf("server error")}
	default:
		return backoff.Permanent(&Error{TaskID: taskID, StatusCode: resp.StatusCode, Err: fmt.Errorf("request rejected")})
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.clientID != "" {
		req.Header.Set("X-Client-Id", c.clientID)
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}
