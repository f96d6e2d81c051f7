package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/", "example.com"},
		{"http://Example.com/Shop?utm=x#top", "example.com/shop"},
		{"example.com", "example.com"},
		{"https://shop.example.co.uk/suits/", "shop.example.co.uk/suits"},
		{"  https://www.tailor.pt  ", "tailor.pt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("https://www.example.com/shop/suits"))
	assert.Equal(t, "example.com", ExtractDomain("example.com"))
	assert.Equal(t, "shop.example.co.uk", ExtractDomain("http://shop.example.co.uk/"))
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "london", NormalizeCity("  London "))
	assert.Equal(t, "new york", NormalizeCity("New York"))
}

func TestProspectID(t *testing.T) {
	id := ProspectID("https://www.example.com/", "London")
	assert.Len(t, id, 16)

	// Different representations of the same brand and city collapse to one id.
	assert.Equal(t, id, ProspectID("http://example.com", "london "))

	// A different city yields a different id.
	assert.NotEqual(t, id, ProspectID("https://www.example.com/", "Madrid"))
}

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	encoded := encodeVector(vec)
	assert.Equal(t, "[0.5,-1.25,3]", encoded)

	decoded, err := decodeVector(encoded)
	assert.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeVector_Malformed(t *testing.T) {
	_, err := decodeVector("0.5,1.0")
	assert.Error(t, err)

	_, err = decodeVector("[0.5,abc]")
	assert.Error(t, err)

	empty, err := decodeVector("[]")
	assert.NoError(t, err)
	assert.Empty(t, empty)
}
