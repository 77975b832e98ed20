// Package pagination normalizes limit/offset list parameters and
// wraps list results in a consistent envelope.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is used when the client omits the limit parameter.
	DefaultLimit = 50
	// MaxLimit caps a single page regardless of what the client asks.
	MaxLimit = 100
)

// Params are sanitized list parameters. Construct them with Parse so
// the bounds are always enforced.
type Params struct {
	Limit  int
	Offset int
}

// Parse reads limit and offset from query values, applying defaults
// and clamping to [1, MaxLimit] and offset >= 0.
func Parse(q url.Values) Params {
	return Clamp(atoiDefault(q.Get("limit"), DefaultLimit), atoiDefault(q.Get("offset"), 0))
}

// Clamp sanitizes raw limit/offset values.
func Clamp(limit, offset int) Params {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// Result is the list response envelope. Data is never null in JSON.
type Result[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewResult wraps a page of items with its paging metadata.
func NewResult[T any](data []T, total int64, p Params) Result[T] {
	if data == nil {
		data = make([]T, 0)
	}
	return Result[T]{Data: data, Total: total, Limit: p.Limit, Offset: p.Offset}
}
