package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/price"
	"github.com/confecoes-lanca/prospector/internal/store"
)

// validationSem caps concurrent city validations process-wide. Validation is
// the expensive stage (scraping plus embedding plus LLM calls), so parallel
// API-triggered runs queue here instead of stampeding the providers.
var validationSem = semaphore.NewWeighted(3)

const (
	// preScoreMinPriceEUR rejects candidates whose detected price marks
	// them as fast fashion. 0 (unknown) passes.
	preScoreMinPriceEUR = 300
	// preScoreMinSimilarity is the floor for candidates with no detected
	// price at all.
	preScoreMinSimilarity = 45
	// preScorePremiumPriceEUR earns the flat price bonus.
	preScorePremiumPriceEUR = 500
	preScorePriceBonus      = 30
	preScoreFloor           = 25
)

var positiveKeywords = []string{
	"suit", "fato", "jacket", "blazer", "tailor", "sartorial", "bespoke",
	"abito", "traje", "costume", "menswear", "moda",
}

var negativeURLKeywords = []string{
	"yelp", "tripadvisor", "directory", "pages", "list", "blog", "news",
	"guide", "ranking",
}

var strongKeywords = []string{"suit", "tailor", "bespoke", "sartorial"}

// Validate scrapes the discovered URLs, filters them down with cheap
// data-driven checks and runs the LLM extraction over the survivors. The
// result is run.Candidates ordered best-first by the pre-score.
func (p *Pipeline) Validate(ctx context.Context, run *Run) error {
	if err := validationSem.Acquire(ctx, 1); err != nil {
		return eris.Wrap(err, "pipeline: acquire validation slot")
	}
	defer validationSem.Release(1)

	log := zap.L().With(zap.String("run_id", run.ID))

	if len(run.SearchResults) == 0 {
		run.Note("Nenhum resultado de busca para processar")
		return nil
	}

	urls := p.aggregateCandidates(ctx, run)
	run.Note("A processar %d URLs únicos", len(urls))

	contents := p.scraper.ScrapeAll(ctx, urls, p.cfg.ScrapeConcurrency)
	var scraped []model.ExtractedContent
	for _, c := range contents {
		if c.Content != "" {
			scraped = append(scraped, c)
		}
	}
	run.Report("scrape", len(urls), len(scraped))
	run.Note("Conteúdo extraído: %d/%d", len(scraped), len(urls))

	kept := filterByKeywords(scraped)
	run.Note("Filtro de keywords: %d relevantes", len(kept))
	log.Info("pipeline: keyword filter",
		zap.Int("in", len(scraped)),
		zap.Int("out", len(kept)),
	)

	enriched := p.enrichPrices(ctx, kept)

	shortlist := p.preScore(ctx, enriched)
	run.Note("Pré-seleção: %d finalistas", len(shortlist))

	candidates, err := p.selectCandidates(ctx, shortlist, run)
	if err != nil {
		// Extraction is best-effort: a malformed LLM response yields an
		// empty candidate list, not a failed run.
		log.Warn("pipeline: candidate extraction failed", zap.Error(err))
		run.Note("Análise final falhou, 0 marcas selecionadas")
		candidates = nil
	}
	run.Candidates = candidates
	run.Report("extract", len(shortlist), len(candidates))
	run.Note("%d marcas selecionadas", len(candidates))
	return nil
}

// aggregateCandidates flattens the per-query search results into a unique
// URL list, one per domain, skipping suppressed domains.
func (p *Pipeline) aggregateCandidates(ctx context.Context, run *Run) []string {
	suppressed := make(map[string]struct{})
	if domains, err := p.store.SuppressedDomains(ctx); err == nil {
		for _, d := range domains {
			suppressed[d] = struct{}{}
		}
	}

	var urls []string
	seenDomains := make(map[string]struct{})
	seenURLs := make(map[string]struct{})
	for _, qr := range run.SearchResults {
		for _, r := range qr.Results {
			if r.URL == "" {
				continue
			}
			domain := store.ExtractDomain(r.URL)
			if domain == "" {
				continue
			}
			if _, skip := suppressed[domain]; skip {
				zap.L().Debug("pipeline: skipping suppressed domain", zap.String("domain", domain))
				continue
			}
			if _, dup := seenDomains[domain]; dup {
				continue
			}
			norm := store.NormalizeURL(r.URL)
			if _, dup := seenURLs[norm]; dup {
				continue
			}
			seenDomains[domain] = struct{}{}
			seenURLs[norm] = struct{}{}
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// filterByKeywords drops directories and obviously irrelevant sites. A page
// needs at least two keyword hits in its first 5000 chars; the strong
// tailoring terms count triple.
func filterByKeywords(contents []model.ExtractedContent) []model.ExtractedContent {
	var kept []model.ExtractedContent
	for _, item := range contents {
		lowerURL := strings.ToLower(item.URL)
		if containsAny(lowerURL, negativeURLKeywords) {
			continue
		}
		text := strings.ToLower(item.Content)
		if len(text) > 5000 {
			text = text[:5000]
		}
		score := 0
		for _, kw := range positiveKeywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if containsAny(text, strongKeywords) {
			score += 3
		}
		if score >= 2 {
			kept = append(kept, item)
		}
	}
	return kept
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

type scoredContent struct {
	content model.ExtractedContent
	score   float64
}

// preScore ranks candidates with cheap signals (detected price, vector
// similarity to the reference catalogue) and shortlists the best for the
// expensive LLM pass. Ties keep their input order.
func (p *Pipeline) preScore(ctx context.Context, contents []model.ExtractedContent) []model.ExtractedContent {
	var scored []scoredContent
	for _, c := range contents {
		priceEUR := price.Extract(c.Content)
		if priceEUR > 0 && priceEUR < preScoreMinPriceEUR {
			continue
		}

		text := c.Content
		if len(text) > 4000 {
			text = text[:4000]
		}
		sim := 0.0
		matches, err := p.matcher.FindSimilar(ctx, text, 1)
		if err != nil {
			zap.L().Warn("pipeline: pre-score similarity failed",
				zap.String("url", c.URL),
				zap.Error(err),
			)
		} else if len(matches) > 0 {
			sim = matches[0].Similarity
		}

		if sim < preScoreMinSimilarity && priceEUR == 0 {
			continue
		}
		score := sim * 0.7
		if priceEUR > preScorePremiumPriceEUR {
			score += preScorePriceBonus
		}
		if score < preScoreFloor {
			continue
		}
		scored = append(scored, scoredContent{content: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > p.cfg.ShortlistSize {
		scored = scored[:p.cfg.ShortlistSize]
	}

	shortlist := make([]model.ExtractedContent, len(scored))
	for i, s := range scored {
		shortlist[i] = s.content
	}
	return shortlist
}
