package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldOverwrite(t *testing.T) {
	long100 := strings.Repeat("a", 100)

	tests := []struct {
		name     string
		field    string
		existing any
		newVal   any
		want     bool
		decision Decision
	}{
		{"new empty over value", "description", "Belo condomínio", "", false, Reject},
		{"new nil over value", "name", "Jardins", nil, false, Reject},
		{"both empty", "name", "", "  ", false, Skip},
		{"fills empty string", "description", "", "Novo texto", true, Accept},
		{"fills nil", "units", nil, 120, true, Accept},
		{"fills empty slice", "tags", []any{}, []any{"a"}, true, Accept},
		{"type mismatch", "units", 120, "120", false, Reject},
		{"equal strings skipped", "name", "Jardins", " Jardins ", false, Skip},
		{"equal numbers skipped", "units", 120, 120.0, false, Skip},
		{"string 21 percent longer", "description", long100, strings.Repeat("b", 121), true, Accept},
		{"string exactly 20 percent longer", "description", long100, strings.Repeat("b", 120), false, Skip},
		{"string slightly shorter", "description", long100, strings.Repeat("b", 95), false, Skip},
		{"string much shorter", "description", long100, strings.Repeat("b", 79), false, Reject},
		{"zero over non-zero", "units", 120, 0, false, Reject},
		{"replaces zero", "lot_avg_price", 0.0, 450000.0, true, Accept},
		{"price tripled", "lot_avg_price", 100000.0, 300000.0, false, Reject},
		{"price halved minus", "lot_min_price", 100000.0, 49000.0, false, Reject},
		{"price within band", "lot_avg_price", 100000.0, 150000.0, true, Accept},
		{"price at upper bound", "condo_fee", 500.0, 1000.0, true, Accept},
		{"non-monetary large change", "units", 10, 100, true, Accept},
		{"bool flipped", "has_pool", true, false, true, Accept},
		{"bool unchanged", "has_pool", true, true, false, Skip},
		{"more array entries", "tags", []any{"a"}, []any{"a", "b"}, true, Accept},
		{"fewer array entries", "tags", []any{"a", "b"}, []any{"c"}, false, Reject},
		{"same size map", "meta", map[string]any{"a": 1}, map[string]any{"b": 2}, false, Reject},
		{"larger map", "meta", map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}, true, Accept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldOverwrite(tt.field, tt.existing, tt.newVal)
			assert.Equal(t, tt.want, got.ShouldOverwrite)
			assert.Equal(t, tt.decision, got.Decision)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestShouldOverwrite_FalseIsAValue(t *testing.T) {
	got := ShouldOverwrite("has_pool", false, true)
	assert.True(t, got.ShouldOverwrite)
	assert.Equal(t, "scraped boolean is authoritative", got.Reason)
}

func TestIsEmpty(t *testing.T) {
	var nilMap map[string]any
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(" \t\n"))
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.True(t, IsEmpty(nilMap))

	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(false))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty([]any{nil}))
}

func TestIsMonetary(t *testing.T) {
	assert.True(t, IsMonetary("lot_avg_price"))
	assert.True(t, IsMonetary("condo_fee"))
	assert.True(t, IsMonetary("valor_condominio"))
	assert.False(t, IsMonetary("units"))
	assert.False(t, IsMonetary("latitude"))
}
