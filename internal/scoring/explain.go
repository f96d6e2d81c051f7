package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/similarity"
	"github.com/confecoes-lanca/prospector/pkg/anthropic"
)

// TemplateExplanation builds the deterministic fallback sentence listing the
// attributes the prospect shares with its best reference match. At least one
// sentence is always produced.
func TemplateExplanation(p *model.Prospect, match similarity.Match) string {
	var shared []string

	client := match.Metadata
	prospectStores := p.EffectiveStoreCount()
	if diff := prospectStores - client.StoreCount; diff >= -5 && diff <= 5 {
		shared = append(shared, fmt.Sprintf("similar boutique size (%d vs %d stores)", prospectStores, client.StoreCount))
	}
	if strings.Contains(p.WoolPercentage, "100") {
		shared = append(shared, "100% wool suits")
	}
	if p.MadeToMeasure != nil && *p.MadeToMeasure {
		shared = append(shared, "made-to-measure services")
	}
	if p.BrandStyle != "" && strings.EqualFold(p.BrandStyle, client.BrandStyle) {
		shared = append(shared, fmt.Sprintf("%s positioning", p.BrandStyle))
	}

	if len(shared) == 0 {
		return fmt.Sprintf("Similar to %s (%.1f%% match) based on overall brand profile and positioning.",
			match.Name, match.Similarity)
	}
	return fmt.Sprintf("Similar to %s because both have: %s.", match.Name, strings.Join(shared, ", "))
}

// LLMExplainer generates a similarity explanation with the text model.
type LLMExplainer struct {
	client anthropic.Client
	model  string
}

// NewLLMExplainer creates an Explainer backed by the Anthropic client.
func NewLLMExplainer(client anthropic.Client, model string) *LLMExplainer {
	return &LLMExplainer{client: client, model: model}
}

// Explain implements Explainer. Errors are reported to the caller, which
// falls back to TemplateExplanation.
func (g *LLMExplainer) Explain(ctx context.Context, p *model.Prospect, match similarity.Match) (string, error) {
	mtm := "unknown"
	if p.MadeToMeasure != nil {
		mtm = fmt.Sprintf("%t", *p.MadeToMeasure)
	}

	prompt := fmt.Sprintf(`You are analyzing why a prospect brand is similar to an existing Confeções Lança client.

PROSPECT:
- Name: %s
- Country: %s
- Stores: %d
- Price: €%.0f
- Wool: %s
- Made-to-Measure: %s
- Style: %s
- Business Model: %s

LANÇA CLIENT (most similar, %.1f%% match):
- Name: %s
- Country: %s
- Stores: %d
- Style: %s
- Business Model: %s
- Profile: %s

Write a brief explanation (2-3 sentences) of why these brands are similar.
Focus on business size, quality positioning, brand style and business model.
Be concise and specific. Write in English. Respond with the explanation only.`,
		p.Name, p.Country, p.StoreCount, p.AvgPriceEUR, p.WoolPercentage, mtm, p.BrandStyle, p.BusinessModel,
		match.Similarity, match.Name, match.Country, match.Metadata.StoreCount,
		match.Metadata.BrandStyle, match.Metadata.BusinessModel, match.ProfileText)

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 300,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "scoring: generate explanation")
	}
	return resp.Text(), nil
}
