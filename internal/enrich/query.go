package enrich

import (
	"fmt"
	"strings"
)

// MaxQueryRunes caps the search query length.
const MaxQueryRunes = 128

// Query turns extracted text into a search query: whitespace runs become a
// single space and the result is trimmed and capped at MaxQueryRunes.
func Query(text string) string {
	q := strings.Join(strings.Fields(text), " ")
	r := []rune(q)
	if len(r) > MaxQueryRunes {
		q = strings.TrimSpace(string(r[:MaxQueryRunes]))
	}
	return q
}

// PlaneSize returns the plane extent for an image of w x h pixels. The larger
// side equals budget and the other side keeps the aspect ratio.
func PlaneSize(w, h int, budget float32) ([2]float32, error) {
	if w <= 0 || h <= 0 {
		return [2]float32{}, fmt.Errorf("invalid image size %dx%d", w, h)
	}
	if budget <= 0 {
		return [2]float32{}, fmt.Errorf("invalid plane budget %v", budget)
	}
	if w >= h {
		return [2]float32{budget, budget * float32(h) / float32(w)}, nil
	}
	return [2]float32{budget * float32(w) / float32(h), budget}, nil
}
