package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/mmcdole/gofeed"
)

// Fetcher turns feed URLs into articles.
type Fetcher interface {
	Fetch(ctx context.Context, urls []string) ([]Article, error)
}

// HTTPFetcher fetches and parses RSS, Atom and JSON feeds.
type HTTPFetcher struct {
	parser     *gofeed.Parser
	logger     *slog.Logger
	maxPerFeed int
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for feed requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.parser.Client = c }
}

// WithMaxPerFeed caps the entries taken from each feed. Zero means no cap.
func WithMaxPerFeed(n int) FetcherOption {
	return func(f *HTTPFetcher) { f.maxPerFeed = n }
}

// WithFetchLogger sets the logger for skipped feeds.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher with a 30 second request timeout.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}
	parser.UserAgent = "feedgraph/1.0"

	f := &HTTPFetcher{parser: parser, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch parses every feed in order. A feed that cannot be fetched or
// parsed is logged and skipped; only cancellation fails the call.
func (f *HTTPFetcher) Fetch(ctx context.Context, urls []string) ([]Article, error) {
	var articles []Article
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		feed, err := f.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("skipping feed", "url", url, "error", err)
			continue
		}

		items := feed.Items
		if f.maxPerFeed > 0 && len(items) > f.maxPerFeed {
			items = items[:f.maxPerFeed]
		}
		for _, item := range items {
			articles = append(articles, fromItem(feed.Title, item))
		}
		f.logger.Debug("fetched feed", "url", url, "items", len(items))
	}
	return articles, nil
}

func fromItem(source string, item *gofeed.Item) Article {
	a := Article{
		Title:         orDefault(item.Title, "No Title"),
		Link:          item.Link,
		Author:        "Unknown Author",
		PublishedDate: orDefault(item.Published, "Unknown Date"),
		Summary:       item.Description,
		Source:        source,
	}
	if item.Author != nil && item.Author.Name != "" {
		a.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "" {
		a.Author = item.Authors[0].Name
	}
	if item.PublishedParsed != nil {
		a.PublishedDate = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return a
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CachedFetcher serves articles from a local JSON cache while it is
// younger than MaxAge and was fetched from the same feed URLs, and
// refreshes it from Fetcher otherwise.
type CachedFetcher struct {
	Fetcher Fetcher
	Path    string
	// MaxAge of zero always refetches; a negative MaxAge never expires.
	MaxAge time.Duration
	Logger *slog.Logger
}

// Fetch implements Fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, urls []string) ([]Article, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if c.fresh() {
		cache, err := LoadCache(c.Path)
		switch {
		case err != nil:
			logger.Warn("article cache unreadable, refetching", "path", c.Path, "error", err)
		case !sameFeeds(cache.Feeds, urls):
			logger.Info("feed list changed, refetching", "path", c.Path, "cached_feeds", len(cache.Feeds), "feeds", len(urls))
		default:
			logger.Info("loaded articles from cache", "path", c.Path, "articles", len(cache.Articles))
			return cache.Articles, nil
		}
	}

	articles, err := c.Fetcher.Fetch(ctx, urls)
	if err != nil {
		return nil, err
	}
	if err := SaveCache(c.Path, Cache{Feeds: urls, Articles: articles}); err != nil {
		logger.Warn("could not write article cache", "path", c.Path, "error", err)
	}
	return articles, nil
}

// sameFeeds compares feed lists ignoring order.
func sameFeeds(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func (c *CachedFetcher) fresh() bool {
	if c.MaxAge == 0 {
		return false
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return false
	}
	return c.MaxAge < 0 || time.Since(info.ModTime()) < c.MaxAge
}
