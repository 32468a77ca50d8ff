package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
)

// RateResolutionSvc runs the formula source priority chain for one request:
// manual override, historical snapshot, per-entry columns, pattern inference,
// inferred base formula, knowledge base, unconditional historical fallback.
type RateResolutionSvc interface {
	// ResolveFormula returns the first non-empty result with a provenance tag
	// and confidence score, or ErrNotFound once every source is exhausted.
	ResolveFormula(ctx context.Context, entry *domain.TariffCodeEntry, input domain.CalculationInput) (*domain.FormulaResolution, error)
}

// GeneratedFormula is a formula produced by the pattern-based generator.
type GeneratedFormula struct {
	Formula    string
	Variables  []string
	Confidence float64
}

// PatternFormulaGenerator turns published rate text into an evaluable formula.
// A nil result with nil error means the text matched no known pattern.
type PatternFormulaGenerator interface {
	GenerateFromText(ctx context.Context, rateText, unitHint string) (*GeneratedFormula, error)
}

// NoteResolution is the outcome of a knowledge-base note lookup.
type NoteResolution struct {
	Formula    string
	Confidence float64
}

// NoteResolverSvc resolves legal-note references in rate text through the
// knowledge base. This collaborator is optional: a nil NoteResolverSvc is a
// supported configuration and the resolution step is skipped.
type NoteResolverSvc interface {
	ResolveNoteReference(ctx context.Context, code, rateText, column string, year int) (*NoteResolution, error)
}
