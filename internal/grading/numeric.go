package grading

import (
	"strconv"
	"strings"
)

// parseFloatLoose parses a numeric answer, tolerating surrounding whitespace
// and trailing units ("42 kg" parses as 42).
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
