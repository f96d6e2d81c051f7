package model

// BrandType distinguishes own-brand retailers from multi-brand stores.
type BrandType string

const (
	BrandTypeOwn   BrandType = "own_brand"
	BrandTypeMulti BrandType = "multibrand"
)

// ClientTier ranks a reference client's commercial value.
type ClientTier string

const (
	TierHighValue   ClientTier = "high_value"
	TierMediumValue ClientTier = "medium_value"
	TierLowValue    ClientTier = "low_value"
)

// ReferenceClient is one existing manufacturer client, used as ground truth
// for similarity comparisons. Loaded once from the static catalogue and never
// mutated at runtime.
type ReferenceClient struct {
	Name        string `json:"name"`
	BrandName   string `json:"brand_name"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`

	YearsAsClient int `json:"years_as_client"`
	StoreCount    int `json:"store_count"`
	// PriceEUR is nil when the client's suit price is not public.
	PriceEUR       *float64 `json:"price_eur,omitempty"`
	WoolPercentage string   `json:"wool_percentage"`
	MadeToMeasure  bool     `json:"made_to_measure"`

	BrandType     BrandType  `json:"brand_type"`
	BrandStyle    string     `json:"brand_style"`
	BusinessModel string     `json:"business_model"`
	Tier          ClientTier `json:"tier"`
	Description   string     `json:"description"`
}

// ReferenceEmbedding pairs a reference client with the dense vector derived
// from its profile text. Persisted so embeddings are computed once; replaced
// wholesale on an explicit refresh.
type ReferenceEmbedding struct {
	ID            string    `json:"id"` // stable per-client id, e.g. "client_0"
	Name          string    `json:"name"`
	Country       string    `json:"country"`
	CountryCode   string    `json:"country_code"`
	City          string    `json:"city"`
	StoreCount    int       `json:"store_count"`
	BrandStyle    string    `json:"brand_style"`
	BusinessModel string    `json:"business_model"`
	ProfileText   string    `json:"profile_text"`
	Vector        []float32 `json:"-"`
}
