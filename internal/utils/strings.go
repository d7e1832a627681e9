// Package utils provides small helpers shared by handlers and services.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseSymbols parses a comma-separated symbol list (e.g. a ?symbols= query
// value) into upper-cased, de-duplicated symbols in first-seen order.
func ParseSymbols(s string) []string {
	values := ParseCSV(s)
	if values == nil {
		return nil
	}
	return NormalizeSymbols(values)
}

// NormalizeSymbols trims and upper-cases symbols, dropping blanks and repeats
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	result := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized := strings.ToUpper(strings.TrimSpace(s))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	return result
}
