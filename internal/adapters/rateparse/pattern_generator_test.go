package rateparse_test

import (
	"context"
	"testing"

	"github.com/clearborder/duty_engine/internal/adapters/rateparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromText(t *testing.T) {
	g := rateparse.NewGenerator()
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		unitHint string
		expected string
	}{
		{"free", "Free", "", "0"},
		{"percent", "5%", "", "value * 0.05"},
		{"fractional percent", "2.4%", "", "value * 0.024"},
		{"cents per kg", "2.2¢/kg", "", "weight * 0.022"},
		{"cents spelled out", "4.4 cents per kg", "", "weight * 0.044"},
		{"dollars per unit", "$1.50/unit", "", "quantity * 1.5"},
		{"dollars each", "$2 each", "", "quantity * 2"},
		{"bare cents with weight hint", "6.6¢", "KG", "weight * 0.066"},
		{"bare cents with count hint", "6.6¢", "NO", "quantity * 0.066"},
		{"compound", "5% + 2.2¢/kg", "", "value * 0.05 + weight * 0.022"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.GenerateFromText(ctx, tt.text, tt.unitHint)
			require.NoError(t, err)
			require.NotNil(t, got, "expected a parse for %q", tt.text)
			assert.Equal(t, tt.expected, got.Formula)
			assert.Greater(t, got.Confidence, 0.0)
		})
	}
}

func TestGenerateFromText_NoPattern(t *testing.T) {
	g := rateparse.NewGenerator()
	ctx := context.Background()

	for _, text := range []string{
		"",
		"See heading 9903.88.15",
		"The duty provided in the applicable subheading",
		"5% + see note 20",
	} {
		got, err := g.GenerateFromText(ctx, text, "")
		require.NoError(t, err)
		assert.Nil(t, got, "expected no parse for %q", text)
	}
}
