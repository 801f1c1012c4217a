// Package fetch provides use cases for crawling and fetching articles from RSS/Atom feeds.
// It implements business logic for fetching feed items, summarizing content with AI,
// and storing articles in the repository.
package fetch

import "errors"

// Sentinel errors for fetch use case operations.
var (
	// ErrFeedFetchFailed indicates that fetching a feed from the source URL failed.
	// This can occur due to network issues, invalid URLs, or server errors.
	ErrFeedFetchFailed = errors.New("failed to fetch feed from source")

	// ErrInvalidFeedFormat indicates that the feed content could not be parsed.
	// This typically happens when the feed is not valid RSS or Atom format.
	ErrInvalidFeedFormat = errors.New("invalid feed format")

	// ErrInvalidFeedURL indicates the source's feed URL is malformed or uses
	// an unsupported scheme; rejected before any network I/O.
	ErrInvalidFeedURL = errors.New("invalid feed url")

	// ErrDNSFailure indicates the feed host's hostname could not be resolved.
	ErrDNSFailure = errors.New("dns resolution failed")

	// ErrConnectionRefused indicates the feed host refused the connection.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrHTTPClientError indicates the feed server returned a 4xx response,
	// which is not retried.
	ErrHTTPClientError = errors.New("http client error")

	// ErrHTTPServerError indicates the feed server returned a 5xx response,
	// which is retried by the fetcher's own backoff policy.
	ErrHTTPServerError = errors.New("http server error")

	// ErrParseError indicates the feed body could not be parsed as RSS/Atom.
	ErrParseError = errors.New("feed parse error")
)
