package model

import "time"

// ProspectStatus represents the outreach lifecycle of a persisted prospect.
type ProspectStatus string

const (
	StatusNew       ProspectStatus = "new"
	StatusContacted ProspectStatus = "contacted"
	StatusConverted ProspectStatus = "converted"
	StatusRejected  ProspectStatus = "rejected"
)

// statusTransitions enumerates the allowed status moves. Transitions are
// performed only by explicit reviewer action, never by the scoring engine.
var statusTransitions = map[ProspectStatus][]ProspectStatus{
	StatusNew:       {StatusContacted, StatusRejected},
	StatusContacted: {StatusConverted, StatusRejected},
}

// CanTransition reports whether a prospect may move from one status to another.
func CanTransition(from, to ProspectStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known prospect status.
func ValidStatus(s ProspectStatus) bool {
	switch s {
	case StatusNew, StatusContacted, StatusConverted, StatusRejected:
		return true
	}
	return false
}

// LocationQuality classifies the retail location of a prospect.
type LocationQuality string

const (
	LocationPremium  LocationQuality = "premium"
	LocationStandard LocationQuality = "standard"
	LocationUnknown  LocationQuality = "unknown"
)

// Prospect is a discovered brand pending or past qualification. It is created
// in memory per search run, enriched by the price extractor, location detector
// and scoring engine, and either persisted (status "new") or discarded as a
// duplicate.
type Prospect struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	WebsiteURL  string `json:"website_url"`
	Domain      string `json:"domain,omitempty"` // normalized, dedup key
	City        string `json:"city"`             // normalized lowercase
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`

	// StoreCount 0 means unknown and is treated as 1 downstream.
	StoreCount int `json:"store_count"`
	// AvgPriceEUR 0 means unknown.
	AvgPriceEUR    float64 `json:"avg_price_eur"`
	WoolPercentage string  `json:"wool_percentage,omitempty"`
	// MadeToMeasure nil means unknown.
	MadeToMeasure *bool  `json:"made_to_measure,omitempty"`
	BrandStyle    string `json:"brand_style,omitempty"`
	BusinessModel string `json:"business_model,omitempty"`

	Overview            string   `json:"overview,omitempty"`
	DetailedDescription string   `json:"detailed_description,omitempty"`
	StoreLocations      []string `json:"store_locations,omitempty"`

	LocationQuality LocationQuality `json:"location_quality"`
	LocationScore   int             `json:"location_score"` // 0-10
	// FitScore is the upstream extraction agent's advisory 0-100 rating,
	// distinct from the scoring engine's FinalScore.
	FitScore int `json:"fit_score"`

	// Scoring results, attached after the engine runs.
	Breakdown             *ScoreBreakdown `json:"breakdown,omitempty"`
	MostSimilarClient     string          `json:"most_similar_client,omitempty"`
	SimilarityExplanation string          `json:"similarity_explanation,omitempty"`

	Status       ProspectStatus `json:"status"`
	DiscoveredAt time.Time      `json:"discovered_at"`
}

// EffectiveStoreCount maps the unknown sentinel (0) to 1 for consumers that
// need a positive store count.
func (p *Prospect) EffectiveStoreCount() int {
	if p.StoreCount == 0 {
		return 1
	}
	return p.StoreCount
}
