package domain

import "github.com/shopspring/decimal"

// FormulaType identifies which rate column of a tariff entry a formula belongs to.
type FormulaType string

const (
	// FormulaGeneral is the standard schedule column.
	FormulaGeneral FormulaType = "GENERAL"
	// FormulaOther is the non-preferential ("other") column.
	FormulaOther FormulaType = "OTHER"
	// FormulaSpecial is the special-program adjusted / synthesis-driven column.
	FormulaSpecial FormulaType = "SPECIAL"
)

// SpecialProgramDetail carries the supplementary-program formula linked to an
// entry, together with the headings the program covers and the countries it is
// restricted to. An empty EligibleCountries list means no country restriction.
type SpecialProgramDetail struct {
	Formula           string   `json:"formula"`
	Headings          []string `json:"headings"`
	EligibleCountries []string `json:"eligibleCountries"`
}

// EntryMetadata is free-form synthesis metadata recorded against an entry.
type EntryMetadata struct {
	// SynthesisAdjustmentRate is the additive ad valorem adjustment applied
	// when the adjusted column was derived from the general column. Used to
	// reverse-derive a base formula when only the adjusted one survives.
	SynthesisAdjustmentRate *decimal.Decimal `json:"synthesisAdjustmentRate,omitempty"`
	// ReciprocalOnlyBaseline marks entries whose adjusted column is a pure
	// reciprocal baseline, which disqualifies the special synthesis program.
	ReciprocalOnlyBaseline bool `json:"reciprocalOnlyBaseline,omitempty"`
	// ProgramSignals lists the supplementary-program markers found on the
	// source row (e.g. column annotations). At least one is required for
	// special-program eligibility.
	ProgramSignals []string `json:"programSignals,omitempty"`
}

// TariffCodeEntry is one row of the versioned tariff schedule: one per
// (code, version). Codes are variable-length digit strings with logical levels
// at 4/6/8/10 digits; Chapter is the first two digits.
type TariffCodeEntry struct {
	EntryID       string `json:"entryID"`
	Code          string `json:"code"`
	Chapter       string `json:"chapter"`
	Version       string `json:"version"`
	SourceVersion string `json:"sourceVersion"`
	Active        bool   `json:"active"`

	// Raw rate texts as published, by column. The general column keeps the
	// current, legacy and staged-normalized variants since pattern inference
	// tries each in turn.
	GeneralRateText       string `json:"generalRateText"`
	LegacyGeneralRateText string `json:"legacyGeneralRateText"`
	StagedGeneralRateText string `json:"stagedGeneralRateText"`
	OtherRateText         string `json:"otherRateText"`

	// Precompiled formulas, empty when the column has none.
	GeneralFormula  string `json:"generalFormula"`
	OtherFormula    string `json:"otherFormula"`
	AdjustedFormula string `json:"adjustedFormula"`

	SpecialDetail *SpecialProgramDetail `json:"specialDetail,omitempty"`

	// OtherRateCountries lists origins subject to the non-preferential column.
	OtherRateCountries []string `json:"otherRateCountries"`

	Metadata EntryMetadata `json:"metadata"`
	AuditFields
}

// HasUsableRate reports whether the entry carries any rate or formula field a
// calculation could start from. Headings often lack computable rates while
// their parent subheading does, so hierarchy resolution needs this check.
func (e *TariffCodeEntry) HasUsableRate() bool {
	if e.GeneralFormula != "" || e.OtherFormula != "" || e.AdjustedFormula != "" {
		return true
	}
	if e.SpecialDetail != nil && e.SpecialDetail.Formula != "" {
		return true
	}
	return e.GeneralRateText != "" || e.LegacyGeneralRateText != "" ||
		e.StagedGeneralRateText != "" || e.OtherRateText != ""
}

// IsNonPreferentialCountry reports whether the origin is on the entry's
// non-preferential country list.
func (e *TariffCodeEntry) IsNonPreferentialCountry(country string) bool {
	for _, c := range e.OtherRateCountries {
		if c == country {
			return true
		}
	}
	return false
}
