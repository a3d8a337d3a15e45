// Package fetcher provides the rate-limited, retrying HTTP client used
// for every upstream data source and enrichment API.
package fetcher

import (
	"context"
	neturl "net/url"
)

// Fetcher fetches bytes from upstream APIs. Implementations are safe for
// concurrent use.
type Fetcher interface {
	// Get fetches the URL and returns the response body.
	Get(ctx context.Context, url string) ([]byte, error)

	// GetJSON fetches the URL and unmarshals the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error

	// PostForm submits a form-encoded POST and returns the response body.
	PostForm(ctx context.Context, url string, form neturl.Values) ([]byte, error)
}
