// Package actions resolves and generates follow-up action tasks for
// already-executed task groups.
package actions

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
	"time"

	"github.com/relengworks/shipit/pkg/models"
)

// ErrManifestNotFound indicates the task group or its actions manifest is
// unavailable. This is a hard failure for callers: generating a cancellation
// task without the manifest would produce an invalid task.
var ErrManifestNotFound = errors.New("actions manifest not found")

const manifestArtifact = "public/actions.json"

// Resolver fetches the declarative actions manifest of a task group.
type Resolver interface {
	FetchActions(ctx context.Context, taskID string) (*models.ActionsManifest, error)
}

// HTTPResolver retrieves manifests from the queue service's artifact
// endpoint, optionally backed by a cache: a task group's manifest is
// immutable once the group has run.
type HTTPResolver struct {
	rootURL    string
	httpClient *http.Client
	cache      ManifestCache
	logger     *slog.Logger
}

// NewHTTPResolver creates a resolver against the given queue service root
// URL. cache may be nil.
func NewHTTPResolver(logger *slog.Logger, rootURL string, cache ManifestCache) *HTTPResolver {
	return &HTTPResolver{
		rootURL:    strings.TrimRight(rootURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		logger:     logger,
	}
}

// FetchActions retrieves the actions manifest for the task group identified
// by taskID. Returns ErrManifestNotFound if the task or the manifest
// artifact is unknown to the queue service.
func (r *HTTPResolver) FetchActions(ctx context.Context, taskID string) (*models.ActionsManifest, error) {
	if r.cache != nil {
		manifest, err := r.cache.Get(ctx, taskID)
		if err != nil {
			r.logger.WarnContext(ctx, "Manifest cache read failed", "task_id", taskID, "error", err)
		} else if manifest != nil {
			return manifest, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/queue/v1/task/%s/artifacts/%s",
		r.rootURL, url.PathEscape(taskID), url.PathEscape(manifestArtifact))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch actions manifest for task %s: %w", taskID, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrManifestNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching actions manifest for task %s", resp.StatusCode, taskID)
	}

	var manifest models.ActionsManifest

	err = json.NewDecoder(resp.Body).Decode(&manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to decode actions manifest for task %s: %w", taskID, err)
	}

	if r.cache != nil {
		err = r.cache.Set(ctx, taskID, &manifest)
		if err != nil {
			r.logger.WarnContext(ctx, "Manifest cache write failed", "task_id", taskID, "error", err)
		}
	}

	return &manifest, nil
}
