package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	street, tier, ok := Detect("Flagship store on New Bond Street", "London")
	assert.True(t, ok)
	assert.Equal(t, "new bond street", street)
	assert.Equal(t, 1, tier)
	assert.Equal(t, 10, Score(tier))
}

func TestDetectNoMatch(t *testing.T) {
	_, tier, ok := Detect("Downtown store", "London")
	assert.False(t, ok)
	assert.Equal(t, 0, Score(tier))
}

func TestDetectUnsupportedCity(t *testing.T) {
	_, _, ok := Detect("Visit our flagship on Main Street", "Atlantis")
	assert.False(t, ok, "unsupported cities never produce false positives")
}

func TestDetectFirstMatchWins(t *testing.T) {
	// Content mentions both a tier 2 and a tier 1 street; declaration order
	// puts savile row first.
	street, tier, ok := Detect("Stores on Savile Row and Regent Street", "london")
	assert.True(t, ok)
	assert.Equal(t, "savile row", street)
	assert.Equal(t, 1, tier)
}

func TestDetectAccentFolding(t *testing.T) {
	street, tier, ok := Detect("Our boutique at Parizska 12", "Prague")
	assert.True(t, ok)
	assert.Equal(t, "pařížská", street)
	assert.Equal(t, 1, tier)

	// Accented city spelling resolves too.
	_, _, ok = Detect("Königsallee 60", "Düsseldorf")
	assert.True(t, ok)
	_, _, ok = Detect("Konigsallee 60", "dusseldorf")
	assert.True(t, ok)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 10, Score(1))
	assert.Equal(t, 7, Score(2))
	assert.Equal(t, 4, Score(3))
	assert.Equal(t, 0, Score(0))
	assert.Equal(t, 0, Score(9))
}

func TestHasCityData(t *testing.T) {
	assert.True(t, HasCityData("London"))
	assert.True(t, HasCityData("  PARIS  "))
	assert.True(t, HasCityData("São Paulo"))
	assert.True(t, HasCityData("sao paulo"))
	assert.False(t, HasCityData("Atlantis"))
}

func TestSupportedCities(t *testing.T) {
	cities := SupportedCities()
	assert.NotEmpty(t, cities)
	assert.Contains(t, cities, "london")
	assert.Contains(t, cities, "lisbon")
}
