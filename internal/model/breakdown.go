package model

// RejectionReason codes the hard filter that a prospect failed.
type RejectionReason string

const (
	RejectPriceTooLow   RejectionReason = "price_too_low"
	RejectTooManyStores RejectionReason = "too_many_stores"
)

// ScoreBreakdown holds the six dimension scores and the final 0-100 score.
// A hard-filter failure caps the final score at 40 but the sub-scores are
// still computed in full for transparency.
type ScoreBreakdown struct {
	PriceScore      int     `json:"price_score"`      // 0-30
	SizeScore       int     `json:"size_score"`       // 0-30
	WoolScore       int     `json:"wool_score"`       // 0-15
	MTMScore        int     `json:"mtm_score"`        // 0-15
	SimilarityScore float64 `json:"similarity_score"` // 0-10
	MarketScore     float64 `json:"market_score"`     // 0-10

	FinalScore        float64         `json:"final_score"`
	PassesHardFilters bool            `json:"passes_hard_filters"`
	RejectionReason   RejectionReason `json:"rejection_reason,omitempty"`

	Explanation ScoreExplanation `json:"explanation"`
}

// ScoreExplanation is the human-readable bundle attached to a breakdown.
type ScoreExplanation struct {
	Price             string  `json:"price"`
	Size              string  `json:"size"`
	Wool              string  `json:"wool"`
	MTM               string  `json:"mtm"`
	MostSimilarClient string  `json:"most_similar_client"`
	Similarity        float64 `json:"similarity_to_best_match"`
	SimilarityText    string  `json:"similarity_explanation"`
}
