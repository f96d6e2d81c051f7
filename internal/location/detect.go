package location

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents strips combining marks so "Pařížská" matches "parizska".
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims and accent-folds text for matching.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	folded, _, err := transform.String(foldAccents, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// cityIndex re-keys the street table by normalized city so lookups succeed
// for accented spellings either way ("Düsseldorf", "dusseldorf").
var cityIndex = func() map[string][]street {
	m := make(map[string][]street, len(premiumStreets))
	for city, streets := range premiumStreets {
		m[Normalize(city)] = streets
	}
	return m
}()

// Detect searches content for a known premium retail street of the given
// city. The city lookup is case-insensitive and accent-folded; unsupported
// cities never produce a match. The first street in table-declaration order
// found in the content wins. Returns the street as declared in the table.
func Detect(content, city string) (streetName string, tier int, ok bool) {
	streets, found := cityIndex[Normalize(city)]
	if !found {
		return "", 0, false
	}

	haystack := Normalize(content)
	for _, s := range streets {
		if strings.Contains(haystack, Normalize(s.name)) {
			return s.name, s.tier, true
		}
	}
	return "", 0, false
}

// Score converts a street tier to location points: tier 1 is 10, tier 2 is 7,
// tier 3 is 4, anything else 0.
func Score(tier int) int {
	switch tier {
	case 1:
		return 10
	case 2:
		return 7
	case 3:
		return 4
	default:
		return 0
	}
}

// HasCityData reports whether the table covers the given city.
func HasCityData(city string) bool {
	_, ok := cityIndex[Normalize(city)]
	return ok
}

// SupportedCities returns the covered city keys, sorted.
func SupportedCities() []string {
	cities := make([]string, 0, len(cityIndex))
	for c := range cityIndex {
		cities = append(cities, c)
	}
	sort.Strings(cities)
	return cities
}
