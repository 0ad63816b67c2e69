package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/sync/errgroup"

	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
)

// Scraper returns the readable text of a page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// HTTPScraper downloads a page and converts its HTML to Markdown.
type HTTPScraper struct {
	Client *http.Client
	// MaxBytes limits the downloaded body. Zero means 2 MiB.
	MaxBytes int64
	// MaxChars truncates the converted text. Zero means no limit.
	MaxChars int
}

// NewHTTPScraper creates a scraper with a 30 second timeout.
func NewHTTPScraper() *HTTPScraper {
	return &HTTPScraper{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Scrape implements Scraper. Non-2xx responses are *errors.HTTPError.
func (s *HTTPScraper) Scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "feedgraph/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &flowerrors.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status, Endpoint: url}
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = 2 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	text, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert page: %w", err)
	}
	return truncate(strings.TrimSpace(text), s.MaxChars), nil
}

// truncate cuts s to at most n runes. n <= 0 keeps s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ScrapeAll fills in Content for each article, up to concurrency pages at
// a time. Articles without a link, or whose page fails or is empty, are
// dropped. Order is preserved.
func ScrapeAll(ctx context.Context, scraper Scraper, articles []Article, concurrency int, logger *slog.Logger) ([]Article, error) {
	if logger == nil {
		logger = slog.Default()
	}

	contents := make([]string, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, a := range articles {
		if a.Link == "" {
			logger.Warn("article has no link", "title", a.Title)
			continue
		}
		g.Go(func() error {
			text, err := scraper.Scrape(gctx, a.Link)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("scrape failed, dropping article", "url", a.Link, "error", err)
				return nil
			}
			contents[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scraped := make([]Article, 0, len(articles))
	for i, a := range articles {
		if strings.TrimSpace(contents[i]) == "" {
			continue
		}
		a.Content = contents[i]
		scraped = append(scraped, a)
	}
	return scraped, nil
}
