// Package pagination pages through ordered in-memory result sets with
// opaque cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Cursor represents a decoded pagination cursor
type Cursor struct {
	Offset int
	LastID string
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
	// ErrStaleCursor means the items moved since the cursor was issued,
	// e.g. the index was rebuilt.
	ErrStaleCursor = errors.New("cursor no longer matches the result set")
)

// EncodeCursor creates a base64-encoded cursor pointing past the item with
// lastID at offset-1.
func EncodeCursor(offset int, lastID string) string {
	if offset <= 0 || lastID == "" {
		return ""
	}
	raw := strconv.Itoa(offset) + "|" + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a base64-encoded cursor
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}

	offset, err := strconv.Atoi(parts[0])
	if err != nil || offset <= 0 {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		Offset: offset,
		LastID: parts[1],
	}, nil
}

// Page slices items after cursor. The item just before the page must still
// carry the cursor's ID. limit <= 0 returns everything after the cursor.
func Page[T any](items []T, limit int, cursor string, getID func(T) string) (*PageResult[T], error) {
	c, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	start := 0
	if c != nil {
		if c.Offset > len(items) || getID(items[c.Offset-1]) != c.LastID {
			return nil, ErrStaleCursor
		}
		start = c.Offset
	}

	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	page := &PageResult[T]{
		Items:   items[start:end],
		HasMore: end < len(items),
	}
	if page.HasMore {
		page.Cursor = EncodeCursor(end, getID(items[end-1]))
	}
	return page, nil
}
