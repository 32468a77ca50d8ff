package dto

import (
	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SpecialProgramDetailDTO mirrors the special-program column of an entry.
type SpecialProgramDetailDTO struct {
	Formula           string   `json:"formula"`
	Headings          []string `json:"headings"`
	EligibleCountries []string `json:"eligibleCountries"`
}

// CreateTariffEntryRequest defines the structure for creating a tariff entry.
type CreateTariffEntryRequest struct {
	Code          string `json:"code" binding:"required,tariffcode"`
	Version       string `json:"version" binding:"required"`
	SourceVersion string `json:"sourceVersion"`
	Active        bool   `json:"active"`

	GeneralRateText       string `json:"generalRateText"`
	LegacyGeneralRateText string `json:"legacyGeneralRateText"`
	StagedGeneralRateText string `json:"stagedGeneralRateText"`
	OtherRateText         string `json:"otherRateText"`

	GeneralFormula  string `json:"generalFormula"`
	OtherFormula    string `json:"otherFormula"`
	AdjustedFormula string `json:"adjustedFormula"`

	SpecialDetail *SpecialProgramDetailDTO `json:"specialDetail,omitempty"`

	OtherRateCountries []string `json:"otherRateCountries"`

	SynthesisAdjustmentRate *decimal.Decimal `json:"synthesisAdjustmentRate,omitempty"`
	ReciprocalOnlyBaseline  bool             `json:"reciprocalOnlyBaseline"`
	ProgramSignals          []string         `json:"programSignals"`
}

// CreateOverrideRequest defines the structure for creating a manual override.
type CreateOverrideRequest struct {
	Code                 string             `json:"code" binding:"required,tariffcode"`
	CountryCode          string             `json:"countryCode" binding:"required,min=2,max=3,uppercase"`
	FormulaType          domain.FormulaType `json:"formulaType" binding:"required,oneof=GENERAL OTHER SPECIAL"`
	Version              string             `json:"version"`
	Formula              string             `json:"formula" binding:"required"`
	SuppressExtraCharges bool               `json:"suppressExtraCharges"`
}

// TariffEntryResponse is the API shape of a tariff entry.
type TariffEntryResponse struct {
	EntryID       string `json:"entryID"`
	Code          string `json:"code"`
	Chapter       string `json:"chapter"`
	Version       string `json:"version"`
	SourceVersion string `json:"sourceVersion,omitempty"`
	Active        bool   `json:"active"`

	GeneralRateText string `json:"generalRateText,omitempty"`
	OtherRateText   string `json:"otherRateText,omitempty"`

	GeneralFormula  string `json:"generalFormula,omitempty"`
	OtherFormula    string `json:"otherFormula,omitempty"`
	AdjustedFormula string `json:"adjustedFormula,omitempty"`

	SpecialDetail *SpecialProgramDetailDTO `json:"specialDetail,omitempty"`
	HasUsableRate bool                     `json:"hasUsableRate"`
}

// ToTariffEntryResponse converts a domain entry to its API shape.
func ToTariffEntryResponse(e *domain.TariffCodeEntry) TariffEntryResponse {
	resp := TariffEntryResponse{
		EntryID:         e.EntryID,
		Code:            e.Code,
		Chapter:         e.Chapter,
		Version:         e.Version,
		SourceVersion:   e.SourceVersion,
		Active:          e.Active,
		GeneralRateText: e.GeneralRateText,
		OtherRateText:   e.OtherRateText,
		GeneralFormula:  e.GeneralFormula,
		OtherFormula:    e.OtherFormula,
		AdjustedFormula: e.AdjustedFormula,
		HasUsableRate:   e.HasUsableRate(),
	}
	if e.SpecialDetail != nil {
		resp.SpecialDetail = &SpecialProgramDetailDTO{
			Formula:           e.SpecialDetail.Formula,
			Headings:          e.SpecialDetail.Headings,
			EligibleCountries: e.SpecialDetail.EligibleCountries,
		}
	}
	return resp
}

// OverrideResponse is the API shape of a manual formula override.
type OverrideResponse struct {
	OverrideID           string             `json:"overrideID"`
	Code                 string             `json:"code"`
	CountryCode          string             `json:"countryCode"`
	FormulaType          domain.FormulaType `json:"formulaType"`
	Version              string             `json:"version,omitempty"`
	Formula              string             `json:"formula"`
	SuppressExtraCharges bool               `json:"suppressExtraCharges"`
}

// ToOverrideResponse converts a domain override to its API shape.
func ToOverrideResponse(o *domain.ManualFormulaOverride) OverrideResponse {
	return OverrideResponse{
		OverrideID:           o.OverrideID,
		Code:                 o.Code,
		CountryCode:          o.CountryCode,
		FormulaType:          o.FormulaType,
		Version:              o.Version,
		Formula:              o.Formula,
		SuppressExtraCharges: o.SuppressExtraCharges,
	}
}
