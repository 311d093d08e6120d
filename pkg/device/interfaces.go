package device

import (
	"context"
	"net/url"
)

// Result is the decoded JSON object returned by the players resource.
type Result map[string]any

// APIClient is the transport a Builder submits through. Paths are relative to
// the API base URL (e.g. "players/abc"). Implementations own authentication,
// timeouts and error classification; the Builder never retries.
type APIClient interface {
	Post(ctx context.Context, path string, body any) (Result, error)
	Put(ctx context.Context, path string, body any) (Result, error)
	Get(ctx context.Context, path string, query url.Values) (Result, error)
}
