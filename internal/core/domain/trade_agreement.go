package domain

import "github.com/shopspring/decimal"

// PreferentialRateType tags how a trade agreement's stored rate is applied.
type PreferentialRateType string

const (
	RatePercentage PreferentialRateType = "PERCENTAGE"
	RateSpecific   PreferentialRateType = "SPECIFIC"
	RateFlat       PreferentialRateType = "FLAT"
)

// TradeAgreementEligibility records preferential-rate eligibility for a
// (tariff code, agreement) pair.
type TradeAgreementEligibility struct {
	EligibilityID       string               `json:"eligibilityID"`
	Code                string               `json:"code"`
	AgreementCode       string               `json:"agreementCode"`
	Eligible            bool                 `json:"eligible"`
	RequiresCertificate bool                 `json:"requiresCertificate"`
	PreferentialRate    decimal.Decimal      `json:"preferentialRate"`
	RateType            PreferentialRateType `json:"rateType"`
	AuditFields
}

// TradeAgreementInfo is the per-calculation outcome of the agreement check.
type TradeAgreementInfo struct {
	AgreementCode       string `json:"agreementCode"`
	Eligible            bool   `json:"eligible"`
	RequiresCertificate bool   `json:"requiresCertificate,omitempty"`
}
