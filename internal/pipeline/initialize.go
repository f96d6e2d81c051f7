package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type countryInfo struct {
	name string
	code string
}

// cityCountries infers the target country from well-known city names so the
// caller does not have to pass one. An unknown city falls back to the USA
// default, overridable with the country argument.
var cityCountries = map[string]countryInfo{
	"london":     {"United Kingdom", "GB"},
	"manchester": {"United Kingdom", "GB"},
	"birmingham": {"United Kingdom", "GB"},
	"edinburgh":  {"United Kingdom", "GB"},
	"paris":      {"France", "FR"},
	"lyon":       {"France", "FR"},
	"marseille":  {"France", "FR"},
	"berlin":     {"Germany", "DE"},
	"munich":     {"Germany", "DE"},
	"hamburg":    {"Germany", "DE"},
	"frankfurt":  {"Germany", "DE"},
	"milan":      {"Italy", "IT"},
	"rome":       {"Italy", "IT"},
	"florence":   {"Italy", "IT"},
	"naples":     {"Italy", "IT"},
	"madrid":     {"Spain", "ES"},
	"barcelona":  {"Spain", "ES"},
	"lisbon":     {"Portugal", "PT"},
	"porto":      {"Portugal", "PT"},
	"amsterdam":  {"Netherlands", "NL"},
	"dublin":     {"Ireland", "IE"},
	"zurich":     {"Switzerland", "CH"},
	"geneva":     {"Switzerland", "CH"},
	"stockholm":  {"Sweden", "SE"},
	"copenhagen": {"Denmark", "DK"},
}

// countryCodes maps country names back to ISO codes for countries passed in
// explicitly.
var countryCodes = func() map[string]string {
	m := make(map[string]string, len(cityCountries)+2)
	for _, info := range cityCountries {
		m[strings.ToLower(info.name)] = info.code
	}
	m["usa"] = "US"
	m["united states"] = "US"
	m["uk"] = "GB"
	return m
}()

// InferCountry resolves the country for a normalized city name. Unknown
// cities default to the United States.
func InferCountry(city string) (name, code string) {
	for key, info := range cityCountries {
		if strings.Contains(city, key) {
			return info.name, info.code
		}
	}
	return "United States", "US"
}

// QueryTemplates generates the fixed search queries for a city. The three
// patterns target the ideal client profile directly, so no LLM call is spent
// on query generation.
func QueryTemplates(city string) []string {
	return []string{
		fmt.Sprintf("%s luxury menswear boutique premium suits", city),
		fmt.Sprintf("%s bespoke tailor custom suits high end", city),
		fmt.Sprintf("%s designer men suits store independent", city),
	}
}

// Initialize resolves the target country, checks the city cache and
// generates the search queries. A city that already holds enough prospects
// short-circuits the whole run unless forced.
func (p *Pipeline) Initialize(ctx context.Context, run *Run) error {
	if run.Country == "" {
		run.Country, run.CountryCode = InferCountry(run.City)
	} else if run.CountryCode == "" {
		run.CountryCode = countryCodes[strings.ToLower(strings.TrimSpace(run.Country))]
	}

	count, err := p.store.CityProspectCount(ctx, run.City)
	if err != nil {
		return eris.Wrap(err, "pipeline: city cache check")
	}
	if count >= p.cfg.CacheMinProspects && !run.Force {
		run.Cached = true
		run.CachedCount = count
		run.Note("%s já pesquisada anteriormente", run.City)
		run.Note("%d marcas encontradas em cache (custo: €0.00)", count)
		zap.L().Info("pipeline: city cached, skipping run",
			zap.String("city", run.City),
			zap.Int("existing", count),
		)
		return nil
	}

	run.Queries = QueryTemplates(run.City)
	run.Note("Pesquisa iniciada para %s, %s", run.City, run.Country)
	run.Note("%d queries geradas a partir do perfil de cliente ideal", len(run.Queries))
	for i, q := range run.Queries {
		run.Note("Query %d: %q", i+1, q)
	}
	return nil
}
