package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockDuration = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
	unitDuration  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
)

// ParseDuration reads a stored service duration such as "45", "1:30",
// "1 hour 30 minutes" or "1h 30m" and returns whole minutes. The bool is false
// when nothing positive could be read.
func ParseDuration(text string) (int, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return 0, false
	}

	if m := clockDuration.FindStringSubmatch(trimmed); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if total := h*60 + min; total > 0 {
			return total, true
		}
		return 0, false
	}

	var total float64
	for _, m := range unitDuration.FindAllStringSubmatch(trimmed, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.HasPrefix(m[2], "h") {
			total += value * 60
		} else {
			total += value
		}
	}
	if total > 0 {
		return int(math.Round(total)), true
	}

	if value, err := strconv.ParseFloat(leadingNumber(trimmed), 64); err == nil && value > 0 {
		if rounded := int(math.Round(value)); rounded > 0 {
			return rounded, true
		}
	}
	return 0, false
}

func leadingNumber(s string) string {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	return s[:end]
}
