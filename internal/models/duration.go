package models

import (
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ParseISO8601Duration converts durations such as "PT4M13S" or "P1DT2H" into a [time.Duration].
//
// Years count as 365 days and months as 30 days. Week designators and malformed input yield 0.
func ParseISO8601Duration(s string) time.Duration {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "P")
	if !ok || rest == "" {
		return 0
	}

	datePart, timePart, hasTime := strings.Cut(rest, "T")
	if hasTime && timePart == "" {
		return 0
	}

	dateUnits := map[byte]time.Duration{'Y': 365 * day, 'M': 30 * day, 'D': day}
	timeUnits := map[byte]time.Duration{'H': time.Hour, 'M': time.Minute, 'S': time.Second}

	total, ok := sumDesignators(datePart, "YMD", dateUnits)
	if !ok {
		return 0
	}
	if hasTime {
		t, ok := sumDesignators(timePart, "HMS", timeUnits)
		if !ok {
			return 0
		}
		total += t
	}
	return total
}

// sumDesignators adds up "<number><unit>" pairs whose units appear in the given order.
func sumDesignators(part, order string, units map[byte]time.Duration) (time.Duration, bool) {
	var total time.Duration
	pos := 0
	for part != "" {
		i := strings.IndexFunc(part, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		if i <= 0 {
			return 0, false
		}
		unit := part[i]
		idx := strings.IndexByte(order[pos:], unit)
		if idx < 0 {
			return 0, false
		}
		pos += idx + 1

		n, err := strconv.ParseFloat(part[:i], 64)
		if err != nil {
			return 0, false
		}
		total += time.Duration(n * float64(units[unit]))
		part = part[i+1:]
	}
	return total, true
}
