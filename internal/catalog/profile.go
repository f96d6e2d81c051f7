package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/confecoes-lanca/prospector/internal/model"
)

// ProfileText builds the embedding sentence for a reference client. The same
// format is used for prospects so their transient embeddings live in the same
// space as the stored reference vectors.
func ProfileText(name, city, country string, storeCount int, priceEUR *float64, brandType string) string {
	location := country
	if city != "" && city != country {
		location = city + ", " + country
	}

	var storeText string
	switch {
	case storeCount <= 5:
		storeText = "small boutique"
	case storeCount <= 20:
		storeText = "medium chain"
	default:
		storeText = "large chain"
	}

	priceText := "price not public"
	if priceEUR != nil && *priceEUR > 0 {
		priceText = fmt.Sprintf("suits priced at €%.0f", *priceEUR)
	}

	profile := fmt.Sprintf("%s is a menswear brand from %s. They are a %s selling %s.",
		name, location, storeText, priceText)
	if brandType != "" && brandType != "unknown" {
		profile += fmt.Sprintf(" Business type: %s.", brandType)
	}
	return profile
}

// ClientProfileText builds the embedding sentence for a catalogue client.
func ClientProfileText(c model.ReferenceClient) string {
	return ProfileText(c.Name, c.City, c.Country, c.StoreCount, c.PriceEUR, string(c.BrandType))
}

// ProspectProfileText builds the embedding sentence for a prospect.
func ProspectProfileText(p *model.Prospect) string {
	var price *float64
	if p.AvgPriceEUR > 0 {
		v := p.AvgPriceEUR
		price = &v
	}
	return ProfileText(p.Name, "", p.Country, p.StoreCount, price, p.BusinessModel)
}

// Stats summarizes the catalogue for prompts and reporting.
type Stats struct {
	Total         int
	MinStores     int
	MaxStores     int
	AvgStores     float64
	MinPriceEUR   float64
	MaxPriceEUR   float64
	AvgPriceEUR   float64
	MTMCount      int
	Wool100Count  int
	AvgYears      float64
	OwnBrandCount int
}

// ComputeStats aggregates the catalogue profile.
func ComputeStats() Stats {
	s := Stats{Total: len(clients), MinStores: 1 << 30, MinPriceEUR: 1 << 30}
	var storeSum, priceSum, yearSum float64
	priced := 0
	for _, c := range clients {
		storeSum += float64(c.StoreCount)
		if c.StoreCount < s.MinStores {
			s.MinStores = c.StoreCount
		}
		if c.StoreCount > s.MaxStores {
			s.MaxStores = c.StoreCount
		}
		if c.PriceEUR != nil {
			priced++
			priceSum += *c.PriceEUR
			if *c.PriceEUR < s.MinPriceEUR {
				s.MinPriceEUR = *c.PriceEUR
			}
			if *c.PriceEUR > s.MaxPriceEUR {
				s.MaxPriceEUR = *c.PriceEUR
			}
		}
		if c.MadeToMeasure {
			s.MTMCount++
		}
		if c.WoolPercentage == "100%" {
			s.Wool100Count++
		}
		if c.BrandType == model.BrandTypeOwn {
			s.OwnBrandCount++
		}
		yearSum += float64(c.YearsAsClient)
	}
	s.AvgStores = storeSum / float64(len(clients))
	if priced > 0 {
		s.AvgPriceEUR = priceSum / float64(priced)
	}
	s.AvgYears = yearSum / float64(len(clients))
	return s
}

// RichExamples renders the aggregate profile plus the top n clients as prompt
// material for the extraction agent, so the model sees what a good client
// actually looks like.
func RichExamples(n int) string {
	s := ComputeStats()

	var b strings.Builder
	fmt.Fprintf(&b, "PROFILE OF THE %d EXISTING LANÇA CLIENTS:\n", s.Total)
	fmt.Fprintf(&b, "- Stores: %d-%d (avg %.0f)\n", s.MinStores, s.MaxStores, s.AvgStores)
	fmt.Fprintf(&b, "- Suit price: €%.0f-€%.0f (avg €%.0f)\n", s.MinPriceEUR, s.MaxPriceEUR, s.AvgPriceEUR)
	fmt.Fprintf(&b, "- Made-to-measure: %d/%d offer it\n", s.MTMCount, s.Total)
	fmt.Fprintf(&b, "- 100%% wool: %d/%d\n", s.Wool100Count, s.Total)
	fmt.Fprintf(&b, "- Average tenure: %.0f years\n", s.AvgYears)

	// Highest tier first, longest tenure within a tier.
	tierRank := map[model.ClientTier]int{model.TierHighValue: 0, model.TierMediumValue: 1, model.TierLowValue: 2}
	sorted := make([]model.ReferenceClient, len(clients))
	copy(sorted, clients)
	sort.SliceStable(sorted, func(i, j int) bool {
		if tierRank[sorted[i].Tier] != tierRank[sorted[j].Tier] {
			return tierRank[sorted[i].Tier] < tierRank[sorted[j].Tier]
		}
		return sorted[i].YearsAsClient > sorted[j].YearsAsClient
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	for _, c := range sorted[:n] {
		price := "N/A"
		if c.PriceEUR != nil {
			price = fmt.Sprintf("€%.0f", *c.PriceEUR)
		}
		mtm := "no"
		if c.MadeToMeasure {
			mtm = "yes"
		}
		fmt.Fprintf(&b, "\nREAL CLIENT: %s (%s)\n", c.Name, c.Country)
		fmt.Fprintf(&b, "- Stores: %d | Price: %s | MTM: %s\n", c.StoreCount, price, mtm)
		fmt.Fprintf(&b, "- WHY IT WORKS: %s\n", c.Description)
	}

	b.WriteString("\nAVOID: large chains (50+ stores), fast fashion (<€200), online-only, department stores.\n")
	return b.String()
}
