package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanPayload(t *testing.T) {
	r := Validate(map[string]any{
		"name":          "Residencial Jardins",
		"description":   "Condomínio fechado com piscina e academia completa.",
		"lot_avg_price": 450000.0,
		"latitude":      -23.55,
		"longitude":     -46.63,
		"has_pool":      true,
	})
	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]any
		severity Severity
		contains string
	}{
		{"placeholder phrase", map[string]any{"description": "Lorem ipsum dolor sit amet consectetur"}, SeverityError, "placeholder"},
		{"exact placeholder", map[string]any{"phone": "N/A"}, SeverityError, "placeholder"},
		{"short name", map[string]any{"name": "AB"}, SeverityWarning, "short"},
		{"short description", map[string]any{"description": "Bonito"}, SeverityWarning, "short"},
		{"zero price", map[string]any{"lot_avg_price": 0}, SeverityWarning, "zero price"},
		{"negative units", map[string]any{"units": -4}, SeverityError, "negative"},
		{"latitude range", map[string]any{"latitude": 123.0}, SeverityError, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.fields)
			var issues []Issue
			if tt.severity == SeverityError {
				issues = r.Errors
				assert.False(t, r.Valid)
			} else {
				issues = r.Warnings
				assert.True(t, r.Valid)
			}
			require.Len(t, issues, 1)
			assert.Contains(t, issues[0].Message, tt.contains)
		})
	}
}

func TestValidate_NegativeCoordinatesAllowed(t *testing.T) {
	r := Validate(map[string]any{"latitude": -23.5, "longitude": -46.6})
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)
}

func TestValidate_SkipsEmptyValues(t *testing.T) {
	r := Validate(map[string]any{"name": "", "tags": []any{}, "description": nil})
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)
}
