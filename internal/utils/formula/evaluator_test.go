package formula_test

import (
	"testing"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vars(value, weight, quantity float64) formula.Vars {
	return formula.Vars{
		"value":    decimal.NewFromFloat(value),
		"weight":   decimal.NewFromFloat(weight),
		"quantity": decimal.NewFromFloat(quantity),
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		vars     formula.Vars
		expected string
	}{
		{"ad valorem", "value * 0.05", vars(1000, 0, 0), "50"},
		{"compound rate", "value*0.05 + weight*1.2", vars(1000, 10, 0), "62"},
		{"parenthesized", "(value * 0.05) + (value * 0.02)", vars(100, 0, 0), "7"},
		{"per unit", "quantity * 2.5", vars(0, 0, 4), "10"},
		{"division", "value / 4", vars(100, 0, 0), "25"},
		{"precedence", "2 + 3 * 4", formula.Vars{}, "14"},
		{"nested parens", "((value))", vars(7, 0, 0), "7"},
		{"unary minus", "-value + 10", vars(3, 0, 0), "7"},
		{"running total", "duty * 0.01", formula.Vars{"duty": decimal.NewFromInt(500)}, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formula.Evaluate(tt.expr, tt.vars)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars formula.Vars
	}{
		{"unknown variable", "value * tare", vars(100, 0, 0)},
		{"division by zero literal", "value / 0", vars(100, 0, 0)},
		{"division by zero variable", "value / weight", vars(100, 0, 0)},
		{"dangling operator", "value *", vars(100, 0, 0)},
		{"unbalanced parens", "(value * 0.05", vars(100, 0, 0)},
		{"garbage", "value $ 5", vars(100, 0, 0)},
		{"empty", "", nil},
		{"double dot number", "1.2.3 + value", vars(100, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formula.Evaluate(tt.expr, tt.vars)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrEvaluation)
		})
	}
}

func TestVariables(t *testing.T) {
	got, err := formula.Variables("value*0.05 + weight*1.2 + value*0.01")
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "weight"}, got)

	_, err = formula.Variables("value +")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, formula.Validate("(value * 0.05) + (quantity * 1.5)"))
	assert.Error(t, formula.Validate("import os"))
}
