package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyType tags a policy record with how it participates in a calculation.
type PolicyType string

const (
	// PolicyAddOn is an additional tariff charged on top of the base duty.
	PolicyAddOn PolicyType = "ADD_ON"
	// PolicyPostCalculation is a fee evaluated after the duty total is known.
	PolicyPostCalculation PolicyType = "POST_CALCULATION"
	// PolicyStandalone is an independent charge, evaluated in the add-on pass.
	PolicyStandalone PolicyType = "STANDALONE"
	// PolicyConditional never charges; it gates or suppresses other rows that
	// match the same scope.
	PolicyConditional PolicyType = "CONDITIONAL"
)

// CountryAll is the wildcard country scope on policy records.
const CountryAll = "ALL"

// PolicyConditions is the structured condition object attached to a policy
// record. Every field is optional; absent fields always pass. Pointer and
// nil-slice absence is deliberate so that "not specified" is distinguishable
// from zero values.
type PolicyConditions struct {
	MinValue *decimal.Decimal `json:"minValue,omitempty"`
	MaxValue *decimal.Decimal `json:"maxValue,omitempty"`

	// AllowedCountries / ExcludedCountries entries are matched with the same
	// group-aware logic as the record's country scope, so "EU" in a list also
	// matches members.
	AllowedCountries  []string `json:"allowedCountries,omitempty"`
	ExcludedCountries []string `json:"excludedCountries,omitempty"`

	// RequiredFlags must all be true in the caller-supplied additional-input
	// context (the trade-agreement certificate flag is exposed there as
	// "tradeAgreementCertificate").
	RequiredFlags []string `json:"requiredFlags,omitempty"`

	TransportMode *string `json:"transportMode,omitempty"`

	// RequiredHeading must appear in the caller's selected special-program
	// headings; ExceptionHeading must not. Both are normalized to the
	// NNNN.NN.NN[.NN] shape before comparison.
	RequiredHeading  *string `json:"requiredHeading,omitempty"`
	ExceptionHeading *string `json:"exceptionHeading,omitempty"`

	TradeAgreementCode *string `json:"tradeAgreementCode,omitempty"`

	// ExcludesReciprocalBaseline, on a matched CONDITIONAL row, suppresses
	// reciprocal-baseline rows for the rest of the pass.
	ExcludesReciprocalBaseline bool `json:"excludesReciprocalBaseline,omitempty"`

	// MarkerOnly makes the row inert / audit-only even when it has a formula.
	MarkerOnly bool `json:"markerOnly,omitempty"`
}

// PolicyRecord is one declarative extra-charge rule: an additional tariff, a
// post-calculation fee, or a conditional gate. HTSCode scope is an exact code,
// a two-digit chapter, or "*" for all codes.
type PolicyRecord struct {
	PolicyID    string     `json:"policyID"`
	TaxCode     string     `json:"taxCode"`
	Name        string     `json:"name"`
	HTSCode     string     `json:"htsCode"`
	CountryCode string     `json:"countryCode"`
	Type        PolicyType `json:"type"`
	Formula     string     `json:"formula"`

	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumAmount *decimal.Decimal `json:"maximumAmount,omitempty"`

	EffectiveDate  *time.Time `json:"effectiveDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	// Priority orders evaluation and the output breakdown, ascending first.
	Priority int  `json:"priority"`
	Active   bool `json:"active"`

	Conditions PolicyConditions `json:"conditions"`
	AuditFields
}
