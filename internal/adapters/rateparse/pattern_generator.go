// Package rateparse is the deterministic pattern-based formula generator: it
// turns published rate text ("Free", "5%", "2.2¢/kg", "5% + $1.20/unit") into
// evaluable formulas. Texts that need human judgment (legal references) are
// rejected upstream by the resolution chain.
package rateparse

import (
	"context"
	"regexp"
	"strings"

	"github.com/clearborder/duty_engine/internal/core/domain"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var (
	percentRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*%$`)
	centsRe   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:¢|cents?)(?:\s*/\s*|\s+per\s+|\s+)?([a-zA-Z.]*)$`)
	dollarsRe = regexp.MustCompile(`^\$\s*(\d+(?:\.\d+)?)(?:\s*/\s*|\s+per\s+|\s+)?([a-zA-Z.]*)$`)
)

// Generator implements the pattern-based formula generator port.
type Generator struct{}

// NewGenerator creates a new pattern generator.
func NewGenerator() *Generator {
	return &Generator{}
}

var _ portssvc.PatternFormulaGenerator = (*Generator)(nil)

// GenerateFromText parses rate text into a formula. Compound rates joined by
// "+" are parsed segment by segment; all segments must parse. A nil result
// with nil error means the text matched no known pattern.
func (g *Generator) GenerateFromText(_ context.Context, rateText, unitHint string) (*portssvc.GeneratedFormula, error) {
	text := strings.TrimSpace(rateText)
	if text == "" {
		return nil, nil
	}
	if strings.EqualFold(text, "free") {
		return &portssvc.GeneratedFormula{Formula: "0", Confidence: 1.0}, nil
	}

	segments := strings.Split(text, "+")
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		part, ok := parseSegment(strings.TrimSpace(seg), unitHint)
		if !ok {
			return nil, nil
		}
		parts = append(parts, part)
	}

	formulaText := strings.Join(parts, " + ")
	return &portssvc.GeneratedFormula{
		Formula:    formulaText,
		Variables:  variablesOf(formulaText),
		Confidence: 0.9,
	}, nil
}

func parseSegment(seg, unitHint string) (string, bool) {
	if m := percentRe.FindStringSubmatch(seg); m != nil {
		rate, err := decimal.NewFromString(m[1])
		if err != nil {
			return "", false
		}
		return "value * " + rate.Div(decimal.NewFromInt(100)).String(), true
	}
	if m := centsRe.FindStringSubmatch(seg); m != nil {
		rate, err := decimal.NewFromString(m[1])
		if err != nil {
			return "", false
		}
		perUnit := rate.Div(decimal.NewFromInt(100))
		return variableFor(m[2], unitHint) + " * " + perUnit.String(), true
	}
	if m := dollarsRe.FindStringSubmatch(seg); m != nil {
		rate, err := decimal.NewFromString(m[1])
		if err != nil {
			return "", false
		}
		return variableFor(m[2], unitHint) + " * " + rate.String(), true
	}
	return "", false
}

// variableFor maps a unit word (or, when the segment carries none, the unit
// hint) onto the weight or count shipment variable. Weight units win; anything
// else counts pieces.
func variableFor(unitWord, unitHint string) string {
	unit := strings.ToUpper(strings.Trim(unitWord, "."))
	if unit == "" {
		unit = strings.ToUpper(unitHint)
	}
	switch unit {
	case domain.UnitKilogram, "KILOGRAM", "KILOGRAMS", "KGS":
		return "weight"
	default:
		return "quantity"
	}
}

func variablesOf(formulaText string) []string {
	var vars []string
	for _, v := range []string{"value", "weight", "quantity"} {
		if strings.Contains(formulaText, v) {
			vars = append(vars, v)
		}
	}
	return vars
}
