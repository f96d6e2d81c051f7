// Package catalog holds the fixed reference catalogue of existing Lança
// clients. It is the ground truth for the ideal-client profile, for market
// presence by country, and for the profile texts fed to the similarity index.
package catalog

import (
	"strconv"

	"github.com/confecoes-lanca/prospector/internal/model"
)

func eur(v float64) *float64 { return &v }

// clients is the top-18 priority client catalogue from the reference
// deployment. Read-only for the lifetime of the process.
var clients = []model.ReferenceClient{
	{
		Name: "Hawes & Curtis", BrandName: "Hawes & Curtis",
		Country: "UK", CountryCode: "GB", City: "London",
		YearsAsClient: 10, StoreCount: 30, PriceEUR: eur(500),
		WoolPercentage: "100%", MadeToMeasure: false,
		BrandType: model.BrandTypeOwn, BrandStyle: "Heritage/Premium", BusinessModel: "Retail",
		Tier:        model.TierHighValue,
		Description: "British heritage menswear brand known for shirts and suits. Top revenue client for Lança.",
	},
	{
		Name: "Carlos Nieto", BrandName: "Carlos Nieto",
		Country: "Colombia", CountryCode: "CO", City: "Bogotá",
		YearsAsClient: 12, StoreCount: 20, PriceEUR: eur(800),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium", BusinessModel: "Retail",
		Tier:        model.TierHighValue,
		Description: "Premium Colombian menswear brand with 20 stores, 12-year partnership with Lança.",
	},
	{
		Name: "Bayertree Favourbrook", BrandName: "Favourbrook & Oliver Spencer",
		Country: "UK", CountryCode: "GB", City: "London",
		YearsAsClient: 10, StoreCount: 8, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Luxury/Bespoke", BusinessModel: "Bespoke/Retail",
		Tier:        model.TierHighValue,
		Description: "British luxury occasion wear and bespoke tailoring, 10-year partnership.",
	},
	{
		Name: "Wickett Jones", BrandName: "Wickett Jones",
		Country: "Portugal", CountryCode: "PT", City: "Lisboa",
		YearsAsClient: 10, StoreCount: 3, PriceEUR: eur(600),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium", BusinessModel: "Retail",
		Tier:        model.TierHighValue,
		Description: "Portuguese premium menswear brand with stores in Lisbon and El Corte Inglés presence.",
	},
	{
		Name: "Martin Sturm GMBH", BrandName: "Sturm",
		Country: "Austria", CountryCode: "AT", City: "Vienna",
		YearsAsClient: 5, StoreCount: 1, PriceEUR: eur(1500),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeMulti, BrandStyle: "Luxury/Premium", BusinessModel: "Retail",
		Tier:        model.TierHighValue,
		Description: "Austrian luxury multi-brand retailer in Vienna with premium pricing.",
	},
	{
		Name: "Grupo YES", BrandName: "Adolfo Dominguez",
		Country: "Peru", CountryCode: "PE", City: "Lima",
		YearsAsClient: 7, StoreCount: 29, PriceEUR: nil,
		WoolPercentage: "100%", MadeToMeasure: false,
		BrandType: model.BrandTypeMulti, BrandStyle: "Premium/Multi-brand", BusinessModel: "Retail/Distribution",
		Tier:        model.TierHighValue,
		Description: "Peruvian multi-brand retailer distributing Adolfo Dominguez with 29 stores.",
	},
	{
		Name: "Sastrerías Españolas", BrandName: "Jajoan",
		Country: "Spain", CountryCode: "ES", City: "Spain",
		YearsAsClient: 7, StoreCount: 6, PriceEUR: eur(375),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Traditional/Bespoke", BusinessModel: "Retail/Bespoke",
		Tier:        model.TierMediumValue,
		Description: "Spanish tailoring company with 6 stores and accessible premium pricing.",
	},
	{
		Name: "Walker Slater", BrandName: "Walker Slater",
		Country: "UK", CountryCode: "GB", City: "Edinburgh",
		YearsAsClient: 5, StoreCount: 5, PriceEUR: eur(800),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Heritage/Scottish", BusinessModel: "Retail/Bespoke",
		Tier:        model.TierMediumValue,
		Description: "Scottish heritage tweed and suits specialist with 5 stores in Edinburgh.",
	},
	{
		Name: "Brigdens", BrandName: "Brigdens",
		Country: "UK", CountryCode: "GB", City: "Derby",
		YearsAsClient: 10, StoreCount: 2, PriceEUR: eur(800),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeMulti, BrandStyle: "Premium", BusinessModel: "Retail",
		Tier:        model.TierMediumValue,
		Description: "UK multi-brand retailer in Derby with 10-year partnership and 2 stores.",
	},
	{
		Name: "Gresham Blake", BrandName: "Gresham Blake",
		Country: "UK", CountryCode: "GB", City: "Brighton",
		YearsAsClient: 10, StoreCount: 1, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Bespoke/Contemporary", BusinessModel: "Bespoke",
		Tier:        model.TierMediumValue,
		Description: "British bespoke tailor in Brighton with 10-year partnership and luxury positioning.",
	},
	{
		Name: "Fernando de Carcer", BrandName: "Fernando de Carcer",
		Country: "Spain", CountryCode: "ES", City: "Madrid",
		YearsAsClient: 3, StoreCount: 1, PriceEUR: eur(600),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium/Spanish", BusinessModel: "Retail",
		Tier:        model.TierLowValue,
		Description: "Spanish premium menswear brand in Madrid with own brand focus.",
	},
	{
		Name: "Original Fivers", BrandName: "Flax London",
		Country: "UK", CountryCode: "GB", City: "London",
		YearsAsClient: 3, StoreCount: 2, PriceEUR: eur(800),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Contemporary/Premium", BusinessModel: "Retail",
		Tier:        model.TierLowValue,
		Description: "London-based contemporary menswear brand with 2 stores and premium positioning.",
	},
	{
		Name: "Trotter & Dean", BrandName: "Trotter & Dean",
		Country: "UK", CountryCode: "GB", City: "Cambridge",
		YearsAsClient: 2, StoreCount: 5, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Heritage/Premium", BusinessModel: "Retail",
		Tier:        model.TierLowValue,
		Description: "British heritage menswear brand in Cambridge with 5 stores and luxury pricing.",
	},
	{
		Name: "Garcia Madrid", BrandName: "Garcia Madrid",
		Country: "Spain", CountryCode: "ES", City: "Madrid",
		YearsAsClient: 10, StoreCount: 1, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium/Spanish", BusinessModel: "Retail",
		Tier:        model.TierLowValue,
		Description: "Spanish premium menswear brand in Madrid with 10-year partnership.",
	},
	{
		Name: "Progress Dealer", BrandName: "Dealer",
		Country: "Angola", CountryCode: "AO", City: "Luanda",
		YearsAsClient: 7, StoreCount: 2, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: false,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium/African", BusinessModel: "Retail",
		Tier:        model.TierMediumValue,
		Description: "Angolan premium menswear brand with 2 stores in Luanda.",
	},
	{
		Name: "Vila Verdi", BrandName: "Vila Verdi",
		Country: "Belgium", CountryCode: "BE", City: "Ghent",
		YearsAsClient: 10, StoreCount: 1, PriceEUR: eur(800),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Bespoke/Premium", BusinessModel: "Bespoke",
		Tier:        model.TierMediumValue,
		Description: "Belgian bespoke-only tailor in Ghent with 10-year exclusive partnership.",
	},
	{
		Name: "Supaman", BrandName: "Oliver Brown",
		Country: "UK", CountryCode: "GB", City: "London",
		YearsAsClient: 10, StoreCount: 5, PriceEUR: eur(1000),
		WoolPercentage: "100%", MadeToMeasure: true,
		BrandType: model.BrandTypeOwn, BrandStyle: "Luxury/Heritage", BusinessModel: "Retail",
		Tier:        model.TierMediumValue,
		Description: "British luxury heritage menswear brand Oliver Brown with 5 London stores.",
	},
	{
		Name: "Coshile", BrandName: "Anthony's London",
		Country: "Czech Republic", CountryCode: "CZ", City: "Prague",
		YearsAsClient: 6, StoreCount: 8, PriceEUR: eur(750),
		WoolPercentage: "100%", MadeToMeasure: false,
		BrandType: model.BrandTypeOwn, BrandStyle: "Premium/Contemporary", BusinessModel: "Retail",
		Tier:        model.TierMediumValue,
		Description: "Czech retailer with Anthony's London brand and 8 stores across Czech Republic.",
	},
}

// Clients returns the full reference catalogue.
func Clients() []model.ReferenceClient { return clients }

// Count returns the number of reference clients.
func Count() int { return len(clients) }

// ClientID returns the stable persistence id for the catalogue entry at
// index i, e.g. "client_0". Ids are positional: the catalogue is append-only.
func ClientID(i int) string {
	return "client_" + strconv.Itoa(i)
}

// ByTier returns the clients in the given tier.
func ByTier(tier model.ClientTier) []model.ReferenceClient {
	var out []model.ReferenceClient
	for _, c := range clients {
		if c.Tier == tier {
			out = append(out, c)
		}
	}
	return out
}

// ByCountry returns the clients with the given country code.
func ByCountry(code string) []model.ReferenceClient {
	var out []model.ReferenceClient
	for _, c := range clients {
		if c.CountryCode == code {
			out = append(out, c)
		}
	}
	return out
}

// MarketStrength returns the percentage (0-100) of reference clients already
// located in the given country. GB, with 8 of 18 clients, is ~44.4.
func MarketStrength(countryCode string) float64 {
	count := 0
	for _, c := range clients {
		if c.CountryCode == countryCode {
			count++
		}
	}
	return float64(count) / float64(len(clients)) * 100
}
