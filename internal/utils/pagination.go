// Package utils holds small query-parameter helpers for list endpoints.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s (surrounding spaces ignored) or returns def.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Page size bounds applied by NormalizePage.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps page to >= 1 and pageSize to [1, MaxPageSize],
// substituting DefaultPageSize for a non-positive size.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
