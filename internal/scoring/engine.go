// Package scoring converts an enriched prospect into a deterministic 0-100
// quality score with a per-dimension breakdown, hard-filter flags and a
// human-readable explanation.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/catalog"
	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/similarity"
)

// Matcher finds reference clients similar to a prospect description.
type Matcher interface {
	FindSimilar(ctx context.Context, description string, n int) ([]similarity.Match, error)
}

// Explainer produces a natural-language similarity explanation. Optional;
// failures fall back to the deterministic template.
type Explainer interface {
	Explain(ctx context.Context, p *model.Prospect, match similarity.Match) (string, error)
}

// Engine scores prospects against the reference catalogue.
type Engine struct {
	matcher    Matcher
	explainer  Explainer // may be nil
	thresholds Thresholds
}

// NewEngine creates a scoring engine. explainer may be nil, in which case
// only the templated explanation is produced.
func NewEngine(matcher Matcher, explainer Explainer, t Thresholds) *Engine {
	return &Engine{matcher: matcher, explainer: explainer, thresholds: t}
}

// HardFilter checks the non-negotiable eligibility rules. A failure caps the
// score rather than discarding the prospect.
func (e *Engine) HardFilter(priceEUR float64, storeCount int) (bool, model.RejectionReason) {
	if priceEUR > 0 && priceEUR < e.thresholds.HardMinPriceEUR {
		return false, model.RejectPriceTooLow
	}
	if storeCount > e.thresholds.HardMaxStores {
		return false, model.RejectTooManyStores
	}
	return true, ""
}

// PriceScore maps a suit price to 0-30 points. Unknown (0) scores the
// neutral 15: missing data is not penalized.
func (e *Engine) PriceScore(priceEUR float64) int {
	switch {
	case priceEUR <= 0:
		return 15
	case priceEUR >= e.thresholds.IdealPriceEUR:
		return 30
	case priceEUR >= 500:
		return 20
	case priceEUR >= e.thresholds.HardMinPriceEUR:
		return 10
	default:
		return 0
	}
}

// SizeScore maps a store count to 0-30 points. Zero stores usually means a
// B2B or unknown footprint and scores 25.
func (e *Engine) SizeScore(storeCount int) int {
	switch {
	case storeCount == 0:
		return 25
	case storeCount <= e.thresholds.IdealMaxStores:
		return 30
	case storeCount <= 10:
		return 20
	case storeCount <= 20:
		return 10
	case storeCount <= e.thresholds.HardMaxStores:
		return 5
	default:
		return 0
	}
}

// WoolScore maps a wool percentage label to 0-15 points. Every reference
// client uses 100% wool, so this dimension is strict.
func WoolScore(woolPercentage string) int {
	wool := strings.ToLower(woolPercentage)
	switch {
	case strings.Contains(wool, "100"):
		return 15
	case strings.Contains(wool, "wool") || strings.Contains(wool, "lã"):
		return 5
	default:
		return 0
	}
}

// MTMScore maps the made-to-measure flag to 0-15 points; nil means unknown.
func MTMScore(madeToMeasure *bool) int {
	switch {
	case madeToMeasure == nil:
		return 8
	case *madeToMeasure:
		return 15
	default:
		return 5
	}
}

// SimilarityScore maps the best match percentage to 0-10 points. With no
// match available the neutral 5 is used.
func SimilarityScore(matches []similarity.Match) float64 {
	if len(matches) == 0 {
		return 5
	}
	return math.Min(matches[0].Similarity*0.1, 10)
}

// MarketScore maps the catalogue's presence in a country to 0-10 points.
func MarketScore(countryCode string) float64 {
	return math.Min(catalog.MarketStrength(countryCode)*0.2, 10)
}

// Score computes the full breakdown for a prospect. Sub-scores are always
// computed, even when a hard filter fails, so rejected prospects remain
// inspectable; the failure caps the final score instead.
func (e *Engine) Score(ctx context.Context, p *model.Prospect) (*model.ScoreBreakdown, []similarity.Match, error) {
	passes, reason := e.HardFilter(p.AvgPriceEUR, p.StoreCount)

	matches, err := e.matcher.FindSimilar(ctx, catalog.ProspectProfileText(p), 5)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "scoring: similarity lookup for %s", p.Name)
	}

	b := &model.ScoreBreakdown{
		PriceScore:        e.PriceScore(p.AvgPriceEUR),
		SizeScore:         e.SizeScore(p.StoreCount),
		WoolScore:         WoolScore(p.WoolPercentage),
		MTMScore:          MTMScore(p.MadeToMeasure),
		SimilarityScore:   round2(SimilarityScore(matches)),
		MarketScore:       round2(MarketScore(p.CountryCode)),
		PassesHardFilters: passes,
		RejectionReason:   reason,
	}

	final := float64(b.PriceScore+b.SizeScore+b.WoolScore+b.MTMScore) + b.SimilarityScore + b.MarketScore
	// The dimension maxima sum to 110 on paper; the documented scale is
	// 0-100, so the sum is clamped.
	final = math.Min(final, 100)
	if !passes {
		final = math.Min(final, e.thresholds.RejectedScoreCap)
	}
	b.FinalScore = round2(final)

	b.Explanation = e.explain(ctx, p, matches)
	return b, matches, nil
}

// explain fills the human-readable bundle, preferring the LLM explainer and
// falling back to the deterministic template. Never empty.
func (e *Engine) explain(ctx context.Context, p *model.Prospect, matches []similarity.Match) model.ScoreExplanation {
	ex := model.ScoreExplanation{
		Price: "Unknown",
		Size:  fmt.Sprintf("%d stores → %s", p.StoreCount, e.sizeCategory(p.StoreCount)),
		Wool:  "Unknown",
		MTM:   "No/Unknown",
	}
	if p.AvgPriceEUR > 0 {
		ex.Price = fmt.Sprintf("€%.0f", p.AvgPriceEUR)
	}
	if p.WoolPercentage != "" {
		ex.Wool = p.WoolPercentage
	}
	if p.MadeToMeasure != nil && *p.MadeToMeasure {
		ex.MTM = "Yes"
	}

	if len(matches) == 0 {
		ex.MostSimilarClient = "N/A"
		ex.SimilarityText = "No reference client match available for this prospect."
		return ex
	}

	top := matches[0]
	ex.MostSimilarClient = top.Name
	ex.Similarity = top.Similarity

	if e.explainer != nil {
		if text, err := e.explainer.Explain(ctx, p, top); err == nil && strings.TrimSpace(text) != "" {
			ex.SimilarityText = strings.TrimSpace(text)
			return ex
		} else if err != nil {
			zap.L().Warn("scoring: explanation generation failed, using template",
				zap.String("prospect", p.Name),
				zap.Error(err),
			)
		}
	}

	ex.SimilarityText = TemplateExplanation(p, top)
	return ex
}

func (e *Engine) sizeCategory(storeCount int) string {
	switch {
	case storeCount <= e.thresholds.IdealMaxStores:
		return "ideal boutique"
	case storeCount <= 10:
		return "small chain"
	case storeCount <= 20:
		return "medium chain"
	default:
		return "large chain"
	}
}

// Recommendation bands a final score for reviewers.
func Recommendation(score float64) string {
	switch {
	case score >= 80:
		return "HIGHLY RECOMMENDED - ideal boutique partner"
	case score >= 65:
		return "RECOMMENDED - good potential partner"
	case score >= 50:
		return "CONSIDER - review manually"
	default:
		return "LOW PRIORITY - may be too large or not aligned"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
