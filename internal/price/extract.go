// Package price pulls plausible suit prices out of raw page content. It is a
// cheap heuristic used for rapid filtering, not a pricing engine.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// Plausibility window for a suit price in EUR, exclusive on both ends.
// Anything outside is discarded as noise (phone numbers, years, shipping fees).
const (
	minPlausible = 150
	maxPlausible = 6000
)

// Price patterns: prefix symbol (€1.299,00), suffix symbol (899€),
// and a trailing currency code (500 EUR).
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`[$€£]\s?(\d{1,3}(?:[,.]\d{3})*(?:[.,]\d{2})?)`),
	regexp.MustCompile(`(\d{1,3}(?:[,.]\d{3})*(?:[.,]\d{2})?)\s?[$€£]`),
	regexp.MustCompile(`(\d{1,3}(?:[,.]\d{3})*(?:[.,]\d{2})?)\s?EUR`),
}

// Extract scans content for currency amounts and returns the arithmetic mean
// of all plausible matches, or 0 when none are found. Individual malformed
// matches are skipped, never errors.
func Extract(content string) float64 {
	if content == "" {
		return 0
	}

	var prices []float64
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			v, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			if v > minPlausible && v < maxPlausible {
				prices = append(prices, v)
			}
		}
	}

	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// parseAmount disambiguates decimal vs thousands separators. With both "," and
// "." present the amount is assumed European format (1.299,00): strip both and
// divide by 100. A lone separator is treated as a thousands separator, since
// plausible suit prices are well above two digits.
func parseAmount(raw string) (float64, bool) {
	hasComma := strings.Contains(raw, ",")
	hasDot := strings.Contains(raw, ".")

	cleaned := strings.NewReplacer(",", "", ".", "").Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}

	if hasComma && hasDot {
		return v / 100, true
	}
	return v, true
}
