package store

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// encodeVector renders a float32 slice in the pgvector text format, e.g.
// "[0.1,0.2,0.3]", for use with a ::vector cast.
func encodeVector(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// decodeVector parses the pgvector text format back into a float32 slice.
func decodeVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, eris.Errorf("store: malformed vector literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return []float32{}, nil
	}
	parts := strings.Split(inner, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, eris.Wrapf(err, "store: parse vector element %d", i)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
