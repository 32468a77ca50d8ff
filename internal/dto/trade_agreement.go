package dto

import (
	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateEligibilityRequest defines the structure for creating a
// trade-agreement eligibility row.
type CreateEligibilityRequest struct {
	Code                string                      `json:"code" binding:"required,tariffcode"`
	AgreementCode       string                      `json:"agreementCode" binding:"required"`
	Eligible            bool                        `json:"eligible"`
	RequiresCertificate bool                        `json:"requiresCertificate"`
	PreferentialRate    decimal.Decimal             `json:"preferentialRate"`
	RateType            domain.PreferentialRateType `json:"rateType" binding:"required,oneof=PERCENTAGE SPECIFIC FLAT"`
}

// EligibilityResponse is the API shape of an eligibility row.
type EligibilityResponse struct {
	EligibilityID       string                      `json:"eligibilityID"`
	Code                string                      `json:"code"`
	AgreementCode       string                      `json:"agreementCode"`
	Eligible            bool                        `json:"eligible"`
	RequiresCertificate bool                        `json:"requiresCertificate"`
	PreferentialRate    decimal.Decimal             `json:"preferentialRate"`
	RateType            domain.PreferentialRateType `json:"rateType"`
}

// ToEligibilityResponse converts a domain eligibility row to its API shape.
func ToEligibilityResponse(e *domain.TradeAgreementEligibility) EligibilityResponse {
	return EligibilityResponse{
		EligibilityID:       e.EligibilityID,
		Code:                e.Code,
		AgreementCode:       e.AgreementCode,
		Eligible:            e.Eligible,
		RequiresCertificate: e.RequiresCertificate,
		PreferentialRate:    e.PreferentialRate,
		RateType:            e.RateType,
	}
}
