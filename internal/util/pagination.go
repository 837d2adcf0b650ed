package util

import "strconv"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize clamps a 1-based page and a page size to the accepted ranges.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return page, limit
}

func Calculate(page, limit int) (offset, size int) {
	page, limit = Normalize(page, limit)
	return (page - 1) * limit, limit
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
