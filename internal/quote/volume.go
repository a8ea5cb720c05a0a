package quote

import (
	"strconv"
	"strings"
)

// ParseVolume converts a quoted volume string into a float. The broker
// reports abbreviated volumes with K/M/B suffixes rather than numbers;
// empty or unparseable values come back as zero.
func ParseVolume(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	mult := 1.0
	switch {
	case strings.ContainsAny(raw, "Kk"):
		mult = 1e3
		raw = strings.Trim(raw, "Kk")
	case strings.ContainsAny(raw, "Mm"):
		mult = 1e6
		raw = strings.Trim(raw, "Mm")
	case strings.ContainsAny(raw, "Bb"):
		mult = 1e9
		raw = strings.Trim(raw, "Bb")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v * mult
}
