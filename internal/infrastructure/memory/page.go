package memory

import (
	"fmt"
	"strconv"

	"github.com/go-api-realtime/internal/domain"
)

// page slices items using an offset cursor. The returned cursor is "" on the last page.
func page[T any](items []T, limit int32, cursor string) ([]T, string, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		offset = n
	}
	if offset >= len(items) {
		return []T{}, "", nil
	}
	end := len(items)
	if limit > 0 && offset+int(limit) < end {
		end = offset + int(limit)
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next, nil
}
