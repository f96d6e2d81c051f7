package scrape

import (
	"context"

	"github.com/confecoes-lanca/prospector/internal/model"
)

// Result holds one scraped page with its source.
type Result struct {
	Content model.ExtractedContent
	Title   string
	Source  string // e.g. "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
