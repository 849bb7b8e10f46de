package place

import (
	"strconv"
	"strings"
)

const (
	MXTypeBox   = "Короб"
	MXTypeShelf = "Полка"
)

// shelfThresholdMM: a storage unit with any side over 900 mm is a shelf.
const shelfThresholdMM = 900

// ResolveMXType classifies a storage unit as box or shelf from its
// metadata. Textual hints win over dimensions; mixed or unknown units
// without dimensions default to box. Returns "" when nothing is known.
func ResolveMXType(storageType, boxType, dimensions, category string) string {
	for _, val := range []string{storageType, boxType, category} {
		if val == "" {
			continue
		}
		s := strings.ToLower(val)
		if strings.Contains(s, "короб") || strings.Contains(s, "box") {
			return MXTypeBox
		}
		if strings.Contains(s, "полка") || strings.Contains(s, "shelf") || strings.Contains(s, "стеллаж") {
			return MXTypeShelf
		}
	}
	if dimensions != "" {
		if max, ok := maxDimensionMM(dimensions); ok {
			if max > shelfThresholdMM {
				return MXTypeShelf
			}
			return MXTypeBox
		}
	}
	if storageType != "" || boxType != "" || category != "" {
		return MXTypeBox
	}
	return ""
}

// maxDimensionMM parses a "600x400x300" style dimension string, tolerating
// Cyrillic "х" separators, and returns the largest side.
func maxDimensionMM(dimensions string) (int, bool) {
	s := strings.NewReplacer("х", "x", "Х", "x", "X", "x").Replace(dimensions)
	var max int
	var found bool
	for _, part := range strings.Split(s, "x") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		found = true
		if n > max {
			max = n
		}
	}
	return max, found
}
