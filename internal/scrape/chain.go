// Package scrape provides chained content extraction for candidate websites.
package scrape

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/confecoes-lanca/prospector/internal/model"
)

const (
	// MinContentChars is the threshold below which a scraped page is too
	// thin to analyze and counts as a failed extraction.
	MinContentChars = 500
	// MaxContentChars caps the content passed downstream to bound LLM
	// prompt sizes.
	MaxContentChars = 12000
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. Scrapers are tried in order; the first
// successful result with enough content is returned.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Scrape tries each scraper in order for a single URL. Content shorter than
// MinContentChars counts as a failure; longer content is truncated to
// MaxContentChars.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			if len(result.Content.Content) < MinContentChars {
				lastErr = eris.Errorf("scrape: %s returned %d chars for %s, below minimum",
					s.Name(), len(result.Content.Content), targetURL)
				continue
			}
			if len(result.Content.Content) > MaxContentChars {
				result.Content.Content = result.Content.Content[:MaxContentChars]
			}
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// ScrapeAll fetches multiple URLs in parallel using the chain. maxConcurrent
// controls the concurrency limit. Failed URLs produce entries with empty
// content so callers can report per-URL degradation.
func (c *Chain) ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.ExtractedContent {
	out := make([]model.ExtractedContent, len(urls))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			result, err := c.Scrape(gCtx, u)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("scrape: url failed on all scrapers",
					zap.String("url", u),
					zap.Error(err),
				)
				out[i] = model.ExtractedContent{URL: u}
				return nil
			}
			out[i] = result.Content
			return nil
		})
	}
	_ = g.Wait()
	return out
}
