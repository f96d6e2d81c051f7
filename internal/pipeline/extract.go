package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/catalog"
	"github.com/confecoes-lanca/prospector/internal/location"
	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/price"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/anthropic"
)

const companyProfile = `Confeções Lança is a Portuguese manufacturer specializing in high-quality men's suits and formal wear.

IDEAL CLIENT PROFILE:
- Boutique menswear retailers (not large department stores)
- Focus on premium/luxury segment (suits €500+)
- Prefer brands with fewer than 20 physical stores (easier to establish partnership)
- Value quality European manufacturing
- Looking for reliable, long-term manufacturing partners
- Interested in private label or white-label production

WHAT WE OFFER:
- High-quality suits manufactured in Portugal
- Competitive pricing for premium quality
- Flexible minimum order quantities
- Customization and private label options
- European craftsmanship with modern techniques`

const extractSystemPrompt = `You are the final selection agent for the suit manufacturer "Confeções Lança". You qualify retail brands as manufacturing partnership candidates from scraped website content. Respond with only a valid JSON array.`

const candidateContentLimit = 8000

// extractedCandidate is the JSON shape the selection agent returns per brand.
type extractedCandidate struct {
	Name                string   `json:"name"`
	URL                 string   `json:"url"`
	StoreCount          int      `json:"storeCount"`
	IsChain             bool     `json:"isChain"`
	AvgPriceEUR         float64  `json:"avgPriceEur"`
	PriceSource         string   `json:"priceSource"` // "found" or "not_public"
	PriceNote           string   `json:"priceNote"`
	WoolPercentage      string   `json:"woolPercentage"`
	MadeToMeasure       *bool    `json:"madeToMeasure"`
	BrandStyle          string   `json:"brandStyle"`
	BusinessModel       string   `json:"businessModel"`
	DetailedDescription string   `json:"detailedDescription"`
	StoreLocations      []string `json:"storeLocations"`
	WhySelected         string   `json:"whySelected"`
	Country             string   `json:"country"`
	LocationQuality     string   `json:"locationQuality"` // "premium" or "standard"
	FitScore            int      `json:"fitScore"`
}

// selectCandidates runs the LLM selection over the shortlisted contents and
// maps the surviving brands to prospects, with entity-level deduplication
// and premium street detection per candidate.
func (p *Pipeline) selectCandidates(ctx context.Context, contents []model.ExtractedContent, run *Run) ([]model.Prospect, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: 8192,
		System:    extractSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildExtractionPrompt(contents, run, p.cfg.MaxSelected)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: candidate selection")
	}
	resp.Usage.LogCost(p.cfg.Model, "extract")

	var candidates []extractedCandidate
	if err := json.Unmarshal([]byte(cleanJSONArray(resp.Text())), &candidates); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse candidate selection")
	}

	contentByURL := make(map[string]string, len(contents))
	for _, c := range contents {
		contentByURL[store.NormalizeURL(c.URL)] = c.Content
	}

	seenDomains := make(map[string]struct{})
	var seenNames []string
	var prospects []model.Prospect
	for _, cand := range candidates {
		domain := store.ExtractDomain(cand.URL)
		name := strings.ToLower(strings.TrimSpace(cand.Name))
		if cand.URL == "" || domain == "" || name == "" {
			continue
		}
		if _, dup := seenDomains[domain]; dup {
			continue
		}
		if sameEntity(name, seenNames) {
			zap.L().Debug("pipeline: dropping duplicate entity",
				zap.String("name", cand.Name),
				zap.String("domain", domain),
			)
			continue
		}
		seenDomains[domain] = struct{}{}
		seenNames = append(seenNames, name)

		content := contentByURL[store.NormalizeURL(cand.URL)]
		prospects = append(prospects, p.toProspect(cand, content, run))
	}
	return prospects, nil
}

// sameEntity catches the same brand reported twice under name variants
// ("Bond Tailors" vs "Bond Tailors London").
func sameEntity(name string, seen []string) bool {
	for _, s := range seen {
		if strings.Contains(s, name) || strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// toProspect maps an extracted candidate onto the prospect model, running
// premium street detection over the scraped content. Street evidence
// overrides the agent's location judgement.
func (p *Pipeline) toProspect(cand extractedCandidate, content string, run *Run) model.Prospect {
	quality := model.LocationStandard
	if cand.LocationQuality == string(model.LocationPremium) {
		quality = model.LocationPremium
	}
	locationScore := 0
	if street, tier, ok := location.Detect(content, run.City); ok {
		quality = model.LocationPremium
		locationScore = location.Score(tier)
		zap.L().Debug("pipeline: premium street detected",
			zap.String("name", cand.Name),
			zap.String("street", street),
			zap.Int("tier", tier),
		)
	}

	avgPrice := cand.AvgPriceEUR
	if avgPrice == 0 && content != "" {
		avgPrice = price.Extract(content)
	}

	country := strings.TrimSpace(cand.Country)
	if country == "" {
		country = run.Country
	}

	return model.Prospect{
		Name:                strings.TrimSpace(cand.Name),
		WebsiteURL:          cand.URL,
		City:                run.City,
		Country:             country,
		CountryCode:         run.CountryCode,
		StoreCount:          max(cand.StoreCount, 1),
		AvgPriceEUR:         avgPrice,
		WoolPercentage:      cand.WoolPercentage,
		MadeToMeasure:       cand.MadeToMeasure,
		BrandStyle:          cand.BrandStyle,
		BusinessModel:       cand.BusinessModel,
		Overview:            cand.WhySelected,
		DetailedDescription: cand.DetailedDescription,
		StoreLocations:      cand.StoreLocations,
		LocationQuality:     quality,
		LocationScore:       locationScore,
		FitScore:            cand.FitScore,
	}
}

func buildExtractionPrompt(contents []model.ExtractedContent, run *Run, maxSelected int) string {
	var sites strings.Builder
	for i, c := range contents {
		text := c.Content
		if len(text) > candidateContentLimit {
			text = text[:candidateContentLimit]
		}
		fmt.Fprintf(&sites, "=== CANDIDATE %d ===\nURL: %s\nCONTENT: %s\n\n", i+1, c.URL, text)
	}

	return fmt.Sprintf(`%s

CLIENTES REAIS DA LANÇA (use como "Golden Profile"):
%s

CANDIDATES TO EVALUATE:
%s
TASK: Return a JSON array of up to %d brands that are good partnership opportunities.
LANGUAGE: Use PORTUGUESE (PORTUGAL) for all descriptive text.
CITY: Must have presence in %s.

CRITICAL RULES:
1. ENTITY DEDUPLICATION: If two candidates are actually the same brand (even under different URLs or slightly different names), return only the best one.
2. GDPR COMPLIANCE: Do NOT include any personal names, personal phone numbers, or private emails in "detailedDescription" or "whySelected". Focus on the BUSINESS profile.
3. SEMANTIC FIT: Evaluate how closely the brand matches the "Golden Profile" of actual Lança clients.

FORMAT:
[
  {
    "name": "Brand Name", "url": "URL", "storeCount": int, "isChain": bool,
    "avgPriceEur": float, "priceSource": "found"|"not_public", "priceNote": "...",
    "woolPercentage": "...", "madeToMeasure": bool, "brandStyle": "...", "businessModel": "...",
    "detailedDescription": "...", "storeLocations": ["..."], "whySelected": "...",
    "country": "...", "locationQuality": "premium"|"standard",
    "fitScore": int (0-100 based on Lança profile match)
  }
]

CRITICAL DATA POINTS:
- avgPriceEur: average suit price in EUR as shown on the site, 0 when not public.
- woolPercentage: look for labels like "100%% Wool", "Pure New Wool", "Super 110s/130s".
- madeToMeasure: is there a "Serviço à medida", "Bespoke" or "Custom Tailoring" option? Omit the field when the content does not say.

Return ONLY JSON.`,
		companyProfile, catalog.RichExamples(3), sites.String(), maxSelected, run.City)
}

// cleanJSONArray extracts a JSON array from text that may contain markdown
// code fences or surrounding prose.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
