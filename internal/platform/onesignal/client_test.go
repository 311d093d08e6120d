package onesignal_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-device-service/internal/platform/onesignal"
	"github.com/tinywideclouds/go-device-service/pkg/device"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *onesignal.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := onesignal.NewClient(onesignal.Config{
		BaseURL: server.URL + "/api/v1",
		APIKey:  "rest-key",
	}, server.Client(), newTestLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("Failure - Missing API key", func(t *testing.T) {
		_, err := onesignal.NewClient(onesignal.Config{}, nil, newTestLogger())
		assert.Error(t, err)
	})

	t.Run("Success - Defaults", func(t *testing.T) {
		client, err := onesignal.NewClient(onesignal.Config{APIKey: "k", Timeout: time.Second}, nil, newTestLogger())
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_Post(t *testing.T) {
	ctx := context.Background()

	t.Run("Sends JSON with auth headers", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/players", r.URL.Path)
			assert.Equal(t, "Basic rest-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
			_, err := uuid.Parse(r.Header.Get(onesignal.RequestIDHeader))
			assert.NoError(t, err, "request id should be a uuid")

			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "app-123", body["app_id"])
			assert.Equal(t, "dev-1", body["identifier"])

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success":true,"id":"player-1"}`))
		})

		res, err := client.Post(ctx, "players", map[string]any{"app_id": "app-123", "identifier": "dev-1"})

		require.NoError(t, err)
		assert.Equal(t, "player-1", res["id"])
	})

	t.Run("Rejected request carries OneSignal errors", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":["app_id not found"]}`))
		})

		_, err := client.Post(ctx, "players", map[string]any{})

		var tErr *device.TransportError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, http.StatusBadRequest, tErr.StatusCode)
		assert.Equal(t, []string{"app_id not found"}, tErr.Errors)
		assert.True(t, tErr.Rejected())
		assert.False(t, device.IsNotSent(err))
	})

	t.Run("Keyed error object is flattened", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":{"invalid_identifier":true}}`))
		})

		_, err := client.Post(ctx, "players", map[string]any{})

		var tErr *device.TransportError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, []string{"invalid_identifier: true"}, tErr.Errors)
	})

	t.Run("Malformed success payload is a transport error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not-json`))
		})

		_, err := client.Post(ctx, "players", map[string]any{})

		var tErr *device.TransportError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, http.StatusOK, tErr.StatusCode)
		assert.Error(t, tErr.Err)
	})
}

func TestClient_PutAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Put targets the player path", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/v1/players/dev-1", r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true}`))
		})

		res, err := client.Put(ctx, "players/dev-1", map[string]any{"lat": 10.5})

		require.NoError(t, err)
		assert.Equal(t, true, res["success"])
	})

	t.Run("Get sends query and no body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/players/dev-1", r.URL.Path)
			assert.Equal(t, "app-123", r.URL.Query().Get("app_id"))
			assert.Empty(t, r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.Empty(t, body)
			_, _ = w.Write([]byte(`{"identifier":"dev-1","device_type":1}`))
		})

		res, err := client.Get(ctx, "players/dev-1", url.Values{"app_id": {"app-123"}})

		require.NoError(t, err)
		assert.Equal(t, "dev-1", res["identifier"])
	})

	t.Run("Empty success body yields empty result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		res, err := client.Get(ctx, "players/dev-1", nil)

		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close() // Nothing is listening any more.

	client, err := onesignal.NewClient(onesignal.Config{BaseURL: baseURL, APIKey: "k"}, nil, newTestLogger())
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "players", map[string]any{})

	var tErr *device.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Zero(t, tErr.StatusCode)
	assert.Error(t, tErr.Unwrap())
}
