package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/price"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/tavily"
)

// markdownLink matches [text](href) links in scraped markdown.
var markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)

var suitLinkKeywords = []string{
	"suit", "fatos", "fato", "traje", "abito", "tailoring", "sartorial",
	"ceremony", "wedding",
}

var shopLinkKeywords = []string{
	"shop", "store", "collection", "loja", "comprar", "boutique", "catalog",
}

var deadLinkKeywords = []string{"login", "account", "cart", "basket", "checkout"}

// enrichPrices performs deep price discovery: for pages with no detectable
// price, it follows the most promising shop/suits link from the page itself,
// falling back to a targeted site search, and appends the secondary page to
// the content so the price extractor and the LLM see it.
func (p *Pipeline) enrichPrices(ctx context.Context, contents []model.ExtractedContent) []model.ExtractedContent {
	enriched := make([]model.ExtractedContent, len(contents))
	copy(enriched, contents)

	var secondaryURLs []string
	var targets []int
	for i, item := range contents {
		if item.Content == "" || price.Extract(item.Content) > 0 {
			continue
		}
		shopURL := findShopLink(item.Content, item.URL)
		if shopURL == "" {
			shopURL = p.searchShopPage(ctx, item.URL)
		}
		if shopURL == "" || store.NormalizeURL(shopURL) == store.NormalizeURL(item.URL) {
			continue
		}
		secondaryURLs = append(secondaryURLs, shopURL)
		targets = append(targets, i)
	}
	if len(secondaryURLs) == 0 {
		return enriched
	}

	zap.L().Info("pipeline: deep price discovery",
		zap.Int("secondary_pages", len(secondaryURLs)),
	)
	secondary := p.scraper.ScrapeAll(ctx, secondaryURLs, p.cfg.ScrapeConcurrency)
	for i, sec := range secondary {
		if sec.Content == "" {
			continue
		}
		idx := targets[i]
		enriched[idx].Content = fmt.Sprintf("%s\n\n=== SUITS PAGE: %s ===\n%s",
			enriched[idx].Content, sec.URL, sec.Content)
	}
	return enriched
}

// findShopLink scores every link on the page by how likely it leads to a
// priced suits catalogue and returns the best one resolved against the page
// URL. Returns "" when nothing scores high enough.
func findShopLink(content, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	bestScore := 0
	bestHref := ""
	for _, m := range markdownLink.FindAllStringSubmatch(content, -1) {
		text := strings.ToLower(strings.TrimSpace(m[1]))
		href := strings.ToLower(strings.TrimSpace(m[2]))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript") ||
			strings.HasPrefix(href, "mailto:") {
			continue
		}

		score := 0
		if containsAny(text, suitLinkKeywords) {
			score += 10
		}
		if containsAny(href, suitLinkKeywords) {
			score += 5
		}
		if containsAny(text, shopLinkKeywords) {
			score += 2
		}
		if containsAny(href, shopLinkKeywords) {
			score++
		}
		if containsAny(href, deadLinkKeywords) {
			score -= 50
		}
		if score > bestScore {
			bestScore = score
			bestHref = m[2]
		}
	}
	if bestHref == "" || bestScore < 2 {
		return ""
	}

	ref, err := url.Parse(bestHref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// searchShopPage asks the search provider for a priced suits page on the
// same domain. Best-effort; failures return "".
func (p *Pipeline) searchShopPage(ctx context.Context, pageURL string) string {
	domain := store.ExtractDomain(pageURL)
	if domain == "" {
		return ""
	}
	resp, err := p.search.Search(ctx, fmt.Sprintf(`site:%s "suits" price`, domain),
		tavily.WithSearchDepth("basic"),
		tavily.WithMaxResults(1),
	)
	if err != nil || len(resp.Results) == 0 {
		return ""
	}
	return resp.Results[0].URL
}
