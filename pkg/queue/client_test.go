package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relengworks/shipit/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDefinition() models.TaskDefinition {
	return models.TaskDefinition{
		"provisionerId": "releng-hardware",
		"workerType":    "gecko-decision",
	}
}

func TestClient_CreateTask(t *testing.T) {
	t.Run("puts the definition under the task id", func(t *testing.T) {
		var (
			method string
			path   string
			body   map[string]any
		)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{RootURL: server.URL})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, method)
		assert.Equal(t, "/api/queue/v1/task/SomeTaskId000000000000", path)
		assert.Equal(t, "gecko-decision", body["workerType"])
	})

	t.Run("sends credentials when configured", func(t *testing.T) {
		var authorization, clientID string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization = r.Header.Get("Authorization")
			clientID = r.Header.Get("X-Client-Id")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{
			RootURL:     server.URL,
			ClientID:    "release-runner",
			AccessToken: "secret",
		})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.NoError(t, err)
		assert.Equal(t, "release-runner", clientID)
		assert.Equal(t, "Bearer secret", authorization)
	})

	t.Run("conflict is permanent and not retried", func(t *testing.T) {
		var requests int

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++

			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{RootURL: server.URL, MaxRetries: 5})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.ErrorIs(t, err, ErrTaskConflict)
		assert.Equal(t, 1, requests)

		var queueErr *Error

		require.ErrorAs(t, err, &queueErr)
		assert.Equal(t, http.StatusConflict, queueErr.StatusCode)
		assert.Equal(t, "SomeTaskId000000000000", queueErr.TaskID)
	})

	t.Run("unknown task is permanent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{RootURL: server.URL})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.True(t, IsTaskNotFound(err))
	})

	t.Run("server errors are retried until success", func(t *testing.T) {
		var requests int

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++
			if requests == 1 {
				w.WriteHeader(http.StatusInternalServerError)

				return
			}

			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{RootURL: server.URL, MaxRetries: 3})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.NoError(t, err)
		assert.Equal(t, 2, requests)
	})

	t.Run("gives up after the retry bound", func(t *testing.T) {
		var requests int

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++

			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(testLogger(), Config{RootURL: server.URL, MaxRetries: 2})

		err := client.CreateTask(context.Background(), "SomeTaskId000000000000", testDefinition())

		require.Error(t, err)
		assert.Equal(t, 2, requests)
	})
}
