package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/scraper"
)

func TestPrintResult(t *testing.T) {
	res := &scraper.Result{
		ListingID: 12,
		Success:   true,
		Engine:    "wordpress",
		Updates:   map[string]any{"name": "Vista Sul"},
		Accepted:  []model.FieldAcceptance{{Field: "name", Reason: "fills empty field", Value: "Vista Sul"}},
		Rejected:  []model.FieldRejection{{Field: "description", Reason: "protected field (never overwrite)"}},
	}

	tests := []struct {
		name     string
		verbose  bool
		wantKeys []string
		noKeys   []string
	}{
		{"summary", false, []string{"listing_id", "success", "engine", "stats"}, []string{"accepted", "rejected", "updates"}},
		{"verbose", true, []string{"accepted", "rejected", "updates"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printResult(&buf, res, tt.verbose))

			var out map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
			for _, k := range tt.wantKeys {
				assert.Contains(t, out, k)
			}
			for _, k := range tt.noKeys {
				assert.NotContains(t, out, k)
			}
		})
	}

	assert.Len(t, res.Rejected, 1, "printing must not modify the result")
}
