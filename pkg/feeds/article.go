package feeds

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Article is a feed entry, optionally with scraped content.
type Article struct {
	Title            string   `json:"title"`
	Link             string   `json:"link"`
	Author           string   `json:"author,omitempty"`
	PublishedDate    string   `json:"published_date,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Source           string   `json:"source,omitempty"`
	Content          string   `json:"content,omitempty"`
	MatchingKeywords []string `json:"matching_keywords,omitempty"`
}

// Summary is one article summary produced by the summarize step.
type Summary struct {
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	Summary string `json:"summary"`
}

// Review is the reviewer's verdict on one summary.
type Review struct {
	Title      string `json:"title"`
	PassReview bool   `json:"pass_review"`
	Feedback   string `json:"feedback,omitempty"`
}

// ArticleList is the document written by the fetch and scrape steps.
type ArticleList struct {
	Articles []Article `json:"articles"`
}

// FilteredArticles is the document written by the filter step.
type FilteredArticles struct {
	FilteredArticles []Article `json:"filtered_articles"`
}

// ErrNoCache is returned by LoadArticles when the cache file is absent.
var ErrNoCache = errors.New("article cache not found")

// Cache is the article cache file. Feeds records the feed URLs the
// articles were fetched from.
type Cache struct {
	Feeds    []string  `json:"feeds,omitempty"`
	Articles []Article `json:"articles"`
}

// LoadArticles reads the articles of a cache written by SaveArticles or
// SaveCache.
func LoadArticles(path string) ([]Article, error) {
	c, err := LoadCache(path)
	if err != nil {
		return nil, err
	}
	return c.Articles, nil
}

// SaveArticles writes articles to path, replacing it atomically.
func SaveArticles(path string, articles []Article) error {
	return SaveCache(path, Cache{Articles: articles})
}

// LoadCache reads a cache file.
func LoadCache(path string) (Cache, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Cache{}, fmt.Errorf("%w: %s", ErrNoCache, path)
	}
	if err != nil {
		return Cache{}, fmt.Errorf("read article cache: %w", err)
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return Cache{}, fmt.Errorf("parse article cache %s: %w", path, err)
	}
	return c, nil
}

// SaveCache writes c to path, replacing it atomically.
func SaveCache(path string, c Cache) error {
	if c.Articles == nil {
		c.Articles = []Article{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode article cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write article cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace article cache: %w", err)
	}
	return nil
}
