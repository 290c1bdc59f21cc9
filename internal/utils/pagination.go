// Package utils holds small helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not an integer. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams parses raw page and page_size query values. page is at least 1;
// size falls back to defSize and is bounded to [1, maxSize].
func PageParams(rawPage, rawSize string, defSize, maxSize int) (page, size int) {
	page = max(AtoiDefault(rawPage, 1), 1)
	size = min(max(AtoiDefault(rawSize, defSize), 1), maxSize)
	return page, size
}

// TotalPages is the number of pages of size needed to hold total items.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
