package scoring

// Thresholds are the hard-filter and ideal-point constants for scoring.
// The defaults are derived from the reference catalogue: €375 and 30 stores
// are the min price and max store count across the 18 existing clients,
// €800 and 4 stores their medians.
type Thresholds struct {
	HardMinPriceEUR float64 `yaml:"hard_min_price_eur" mapstructure:"hard_min_price_eur"`
	HardMaxStores   int     `yaml:"hard_max_stores" mapstructure:"hard_max_stores"`
	IdealPriceEUR   float64 `yaml:"ideal_price_eur" mapstructure:"ideal_price_eur"`
	IdealMaxStores  int     `yaml:"ideal_max_stores" mapstructure:"ideal_max_stores"`

	// RejectedScoreCap limits the final score of a hard-filtered prospect.
	RejectedScoreCap float64 `yaml:"rejected_score_cap" mapstructure:"rejected_score_cap"`
}

// DefaultThresholds returns the catalogue-derived scoring constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HardMinPriceEUR:  375,
		HardMaxStores:    30,
		IdealPriceEUR:    800,
		IdealMaxStores:   4,
		RejectedScoreCap: 40,
	}
}
