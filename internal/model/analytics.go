package model

// AnalyticsSummary aggregates the prospect base for the review dashboard.
type AnalyticsSummary struct {
	TotalProspects int            `json:"total_prospects"`
	ByStatus       map[string]int `json:"by_status"`
	ByCity         map[string]int `json:"by_city"`
	AvgFinalScore  float64        `json:"avg_final_score"`
	PremiumLocated int            `json:"premium_located"`
}
