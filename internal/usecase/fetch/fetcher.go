// Package fetch implements the Feed Fetcher: retrieving and parsing one
// source's RSS/Atom feed under a hard timeout and a per-invocation retry
// policy, plus the optional full-content enhancement pass for items whose
// syndicated content is too thin to summarize or dedup well.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
)

// MaxArticlesPerFeed bounds how many items a single fetch returns, most
// recent first.
const MaxArticlesPerFeed = 50

// fetchTimeout is the hard wall-clock budget for one feed GET, independent
// of how many retry attempts it takes.
const fetchTimeout = 15 * time.Second

// userAgent identifies the poller to upstream feed hosts.
const userAgent = "CatchUpFeedBot/1.0"

// FeedItem is one entry parsed out of a source's feed.
type FeedItem struct {
	Title       string
	Description string
	Content     string
	URL         string
	GUID        string
	PublishedAt time.Time
}

// FeedFetcher retrieves and parses one source's feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, source *entity.Source) ([]FeedItem, error)
}

// RSSFetcher implements FeedFetcher over RSS/Atom via gofeed. Retry state
// (the current backoff delay) lives entirely on the stack of one Fetch
// call, so concurrent fetches of different sources never share or
// corrupt each other's schedule.
type RSSFetcher struct {
	client      *http.Client
	retryConfig retry.Config
}

// NewRSSFetcher builds a fetcher using client for all HTTP GETs. Pass nil
// to use http.DefaultClient.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &RSSFetcher{client: client, retryConfig: retry.FeedPollConfig()}
}

// Fetch retrieves and parses source's feed, retrying transport and 5xx
// failures per the configured backoff, and returning up to
// MaxArticlesPerFeed most recent items.
func (f *RSSFetcher) Fetch(ctx context.Context, source *entity.Source) ([]FeedItem, error) {
	if err := validateFeedURL(source.FeedURL); err != nil {
		return nil, err
	}

	var items []FeedItem
	err := retry.WithBackoff(ctx, f.retryConfig, func() error {
		got, err := f.doFetch(ctx, source.FeedURL)
		if err != nil {
			return err
		}
		items = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(items) > MaxArticlesPerFeed {
		items = items[:MaxArticlesPerFeed]
	}
	return items, nil
}

func validateFeedURL(feedURL string) error {
	u, err := url.Parse(feedURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: unsupported scheme or missing host", ErrInvalidFeedURL)
	}
	return nil
}

// doFetch performs exactly one GET-and-parse attempt. Its returned error
// is wrapped so retry.IsRetryable classifies 5xx and transport failures
// as retryable, and 4xx/parse failures as terminal.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(reqCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %w", ErrHTTPClientError, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status})
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %w", ErrHTTPServerError, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status})
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseError, err)
	}

	now := time.Now()
	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := now
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		}
		content := it.Content
		if content == "" {
			content = it.Description
		}
		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		items = append(items, FeedItem{
			Title:       it.Title,
			Description: it.Description,
			Content:     content,
			URL:         it.Link,
			GUID:        guid,
			PublishedAt: pubAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	return items, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrDNSFailure, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrFeedFetchFailed, err)
}

// EnhanceContent fills in fuller article text when the syndicated content
// is shorter than threshold, fetching the canonical page through
// contentFetcher and falling back silently to the RSS content on any
// failure or if the fetched text turns out no longer than what was
// already there. It never returns an error — content enhancement is a
// best-effort quality improvement, not a required step.
func EnhanceContent(ctx context.Context, contentFetcher ContentFetcher, item FeedItem, threshold int) string {
	if contentFetcher == nil {
		return item.Content
	}
	if len(item.Content) >= threshold {
		return item.Content
	}

	fetched, err := contentFetcher.FetchContent(ctx, item.URL)
	if err != nil {
		slog.Debug("content enhancement failed, using feed content",
			slog.String("url", item.URL), slog.Any("error", err))
		return item.Content
	}
	if len(fetched) <= len(item.Content) {
		return item.Content
	}
	return fetched
}
