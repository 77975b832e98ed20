package pagination

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults when absent", "", DefaultLimit, 0},
		{"explicit values", "limit=25&offset=75", 25, 75},
		{"limit capped at max", "limit=5000", MaxLimit, 0},
		{"zero limit falls back to default", "limit=0", DefaultLimit, 0},
		{"negative limit falls back to default", "limit=-3", DefaultLimit, 0},
		{"negative offset clamped to zero", "offset=-10", DefaultLimit, 0},
		{"garbage limit ignored", "limit=abc&offset=10", DefaultLimit, 10},
		{"garbage offset ignored", "limit=10&offset=xyz", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			p := Parse(q)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResult(t *testing.T) {
	t.Run("wraps page with metadata", func(t *testing.T) {
		p := Clamp(10, 20)
		res := NewResult([]string{"a", "b"}, 42, p)

		assert.Equal(t, []string{"a", "b"}, res.Data)
		assert.Equal(t, int64(42), res.Total)
		assert.Equal(t, 10, res.Limit)
		assert.Equal(t, 20, res.Offset)
	})

	t.Run("nil data serializes as empty array", func(t *testing.T) {
		res := NewResult[string](nil, 0, Clamp(0, 0))

		raw, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"data":[]`)
	})
}
