package importer

import (
	"strconv"
	"strings"
	"time"
)

// Coercion rules for semi-structured export fields. Blank and "NaN" cells
// (an artifact of the provider's numeric round-tripping) become SQL NULL.
// Every helper returns `any` so results slot directly into query args.

// nullString trims the value and truncates to maxLen runes (0 = unbounded).
func nullString(s string, maxLen int) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil
	}
	if maxLen > 0 {
		if r := []rune(s); len(r) > maxLen {
			s = string(r[:maxLen])
		}
	}
	return s
}

// nullDecimal validates a numeric string and passes it through unchanged so
// fixed precision survives into the numeric column.
func nullDecimal(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return nil
	}
	return s
}

// nullInt parses via float first so "3.0" round-trips to 3.
func nullInt(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int64(f)
}

// nullBool maps "true"/"1"/"yes" (case-insensitive) to true, any other
// non-blank value to false.
func nullBool(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// timeLayouts are tried in order when normalizing date-like strings.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"02.01.2006",
}

// nullTime normalizes a date-like string to a UTC timestamp.
func nullTime(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return nil
}
