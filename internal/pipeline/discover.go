package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/tavily"
)

// defaultExcludedDomains are marketplaces and review sites that never yield
// partnership candidates. The suppression list from the store is appended at
// search time.
var defaultExcludedDomains = []string{
	"amazon.com",
	"ebay.com",
	"walmart.com",
	"target.com",
	"nordstrom.com",
	"yelp.com",
}

// Discover runs the search queries against the web search provider and
// collects candidate URLs, de-duplicated by normalized URL across queries.
// A failed query is logged and skipped; discovery only comes up empty when
// every query fails.
func (p *Pipeline) Discover(ctx context.Context, run *Run) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	exclude := defaultExcludedDomains
	suppressed, err := p.store.SuppressedDomains(ctx)
	if err != nil {
		log.Warn("pipeline: suppression list unavailable", zap.Error(err))
	} else {
		exclude = append(append([]string{}, exclude...), suppressed...)
	}

	queries := run.Queries
	if len(queries) > p.cfg.MaxQueries {
		queries = queries[:p.cfg.MaxQueries]
	}

	seen := make(map[string]struct{})
	succeeded := 0
	for i, query := range queries {
		resp, searchErr := p.search.Search(ctx, query,
			tavily.WithSearchDepth("advanced"),
			tavily.WithMaxResults(p.cfg.MaxResults),
			tavily.WithExcludeDomains(exclude),
		)
		if searchErr != nil {
			log.Warn("pipeline: search query failed",
				zap.Int("query_index", i),
				zap.String("query", query),
				zap.Error(searchErr),
			)
			run.Note("Query %d falhou", i+1)
			continue
		}
		succeeded++

		qr := model.QueryResults{QueryIndex: i, Query: query}
		for _, r := range resp.Results {
			if r.URL == "" {
				continue
			}
			norm := store.NormalizeURL(r.URL)
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			qr.Results = append(qr.Results, model.SearchResult{
				URL:     r.URL,
				Title:   r.Title,
				Snippet: r.Content,
			})
		}
		run.SearchResults = append(run.SearchResults, qr)
		run.Note("Query %d: %d resultados", i+1, len(resp.Results))
	}

	run.Report("discover", len(queries), succeeded)
	run.Note("Encontrados %d URLs únicos", len(seen))
	log.Info("pipeline: discovery complete",
		zap.Int("queries", len(queries)),
		zap.Int("unique_urls", len(seen)),
	)
	return nil
}
