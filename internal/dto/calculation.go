package dto

import (
	"time"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CalculateDutyRequest is the shipment context submitted for one calculation.
type CalculateDutyRequest struct {
	Code            string          `json:"code" binding:"required,tariffcode"`
	CountryOfOrigin string          `json:"countryOfOrigin" binding:"required,min=2,max=3,uppercase"`
	DeclaredValue   decimal.Decimal `json:"declaredValue" binding:"required"`
	EntryDate       *time.Time      `json:"entryDate,omitempty"`
	WeightKg        decimal.Decimal `json:"weightKg"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuantityUnit    string          `json:"quantityUnit"`
	TransportMode   string          `json:"transportMode"`
	// SelectedHeadings are the caller-selected special-program headings, in
	// any separator style; they are normalized before matching.
	SelectedHeadings          []string        `json:"selectedHeadings"`
	TradeAgreementCode        string          `json:"tradeAgreementCode"`
	TradeAgreementCertificate bool            `json:"tradeAgreementCertificate"`
	AdditionalInputs          map[string]bool `json:"additionalInputs"`
	// Version pins the calculation to a specific schedule version; empty means
	// the most recently updated active entries.
	Version string `json:"version"`
}

// ToInput converts the request into the engine's request-scoped input. The
// entry date defaults to now when omitted.
func (r CalculateDutyRequest) ToInput() domain.CalculationInput {
	entryDate := time.Now().UTC()
	if r.EntryDate != nil {
		entryDate = *r.EntryDate
	}
	return domain.CalculationInput{
		Code:                      r.Code,
		CountryOfOrigin:           r.CountryOfOrigin,
		DeclaredValue:             r.DeclaredValue,
		EntryDate:                 entryDate,
		WeightKg:                  r.WeightKg,
		Quantity:                  r.Quantity,
		QuantityUnit:              r.QuantityUnit,
		TransportMode:             r.TransportMode,
		SelectedHeadings:          r.SelectedHeadings,
		TradeAgreementCode:        r.TradeAgreementCode,
		TradeAgreementCertificate: r.TradeAgreementCertificate,
		AdditionalInputs:          r.AdditionalInputs,
		Version:                   r.Version,
	}
}

// ChargeLineResponse is one additional tariff or tax in the breakdown.
type ChargeLineResponse struct {
	TaxCode string          `json:"taxCode"`
	Name    string          `json:"name"`
	Formula string          `json:"formula"`
	Amount  decimal.Decimal `json:"amount"`
}

// BreakdownResponse itemizes a calculation.
type BreakdownResponse struct {
	BaseDuty          decimal.Decimal      `json:"baseDuty"`
	AdditionalTariffs []ChargeLineResponse `json:"additionalTariffs"`
	Taxes             []ChargeLineResponse `json:"taxes"`
	TotalDuty         decimal.Decimal      `json:"totalDuty"`
	TotalTax          decimal.Decimal      `json:"totalTax"`
	LandedCost        decimal.Decimal      `json:"landedCost"`
}

// TradeAgreementInfoResponse reports the per-calculation agreement outcome.
type TradeAgreementInfoResponse struct {
	AgreementCode       string `json:"agreementCode"`
	Eligible            bool   `json:"eligible"`
	RequiresCertificate bool   `json:"requiresCertificate,omitempty"`
}

// CalculationResponse is the API shape of a completed calculation. All
// monetary fields are rounded to 2 decimal places.
type CalculationResponse struct {
	CalculationID      string                      `json:"calculationId"`
	BaseDuty           decimal.Decimal             `json:"baseDuty"`
	AdditionalTariffs  decimal.Decimal             `json:"additionalTariffs"`
	TotalTaxes         decimal.Decimal             `json:"totalTaxes"`
	TotalDuty          decimal.Decimal             `json:"totalDuty"`
	LandedCost         decimal.Decimal             `json:"landedCost"`
	Breakdown          BreakdownResponse           `json:"breakdown"`
	FormulaUsed        string                      `json:"formulaUsed"`
	RateSource         string                      `json:"rateSource"`
	Confidence         float64                     `json:"confidence"`
	TradeAgreementInfo *TradeAgreementInfoResponse `json:"tradeAgreementInfo,omitempty"`
}

func toChargeLines(lines []domain.ChargeLine) []ChargeLineResponse {
	out := make([]ChargeLineResponse, len(lines))
	for i, l := range lines {
		out[i] = ChargeLineResponse{
			TaxCode: l.TaxCode,
			Name:    l.Name,
			Formula: l.Formula,
			Amount:  l.Amount,
		}
	}
	return out
}

// ToCalculationResponse converts a calculation record to its API shape.
func ToCalculationResponse(rec *domain.CalculationRecord) CalculationResponse {
	additionalTotal := decimal.Zero
	for _, l := range rec.AdditionalTariffs {
		additionalTotal = additionalTotal.Add(l.Amount)
	}
	resp := CalculationResponse{
		CalculationID:     rec.CalculationID,
		BaseDuty:          rec.BaseDuty,
		AdditionalTariffs: additionalTotal.Round(2),
		TotalTaxes:        rec.TotalTax,
		TotalDuty:         rec.TotalDuty,
		LandedCost:        rec.LandedCost,
		Breakdown: BreakdownResponse{
			BaseDuty:          rec.BaseDuty,
			AdditionalTariffs: toChargeLines(rec.AdditionalTariffs),
			Taxes:             toChargeLines(rec.Taxes),
			TotalDuty:         rec.TotalDuty,
			TotalTax:          rec.TotalTax,
			LandedCost:        rec.LandedCost,
		},
		FormulaUsed: rec.FormulaUsed,
		RateSource:  rec.RateSource,
		Confidence:  rec.Confidence,
	}
	if rec.TradeAgreement != nil {
		resp.TradeAgreementInfo = &TradeAgreementInfoResponse{
			AgreementCode:       rec.TradeAgreement.AgreementCode,
			Eligible:            rec.TradeAgreement.Eligible,
			RequiresCertificate: rec.TradeAgreement.RequiresCertificate,
		}
	}
	return resp
}
