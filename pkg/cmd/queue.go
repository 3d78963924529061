package cmd

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relengworks/shipit/pkg/actions"
	"github.com/relengworks/shipit/pkg/queue"
)

// NewQueue creates a task queue client for the given root URL and
// credentials.
func NewQueue(logger *slog.Logger, rootURL, clientID, accessToken string) *queue.Client {
	return queue.NewClient(logger, queue.Config{
		RootURL:     rootURL,
		ClientID:    clientID,
		AccessToken: accessToken,
	})
}

// NewActionsResolver creates an actions manifest resolver against the queue
// root URL. When redisURL is non-empty, fetched manifests are cached in
// Redis for a day.
func NewActionsResolver(logger *slog.Logger, rootURL, redisURL string) (actions.Resolver, error) {
	var cache actions.ManifestCache

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}

		cache = actions.NewRedisManifestCache(redis.NewClient(opts), 24*time.Hour)
	}

	return actions.NewHTTPResolver(logger, rootURL, cache), nil
}
