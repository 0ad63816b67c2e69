// Package feeds holds the news pipeline's tool collaborators: RSS/Atom
// fetching, page scraping, keyword and review filtering, and a local
// article cache.
package feeds
