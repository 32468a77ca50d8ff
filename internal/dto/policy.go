package dto

import (
	"time"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreatePolicyRequest defines the structure for creating a policy record.
// Conditions reuse the domain's typed condition object directly: absence is
// expressed by omitting the field, never by empty strings.
type CreatePolicyRequest struct {
	TaxCode     string            `json:"taxCode" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	HTSCode     string            `json:"htsCode" binding:"required"`
	CountryCode string            `json:"countryCode" binding:"required"`
	Type        domain.PolicyType `json:"type" binding:"required,oneof=ADD_ON POST_CALCULATION STANDALONE CONDITIONAL"`
	Formula     string            `json:"formula"`

	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumAmount *decimal.Decimal `json:"maximumAmount,omitempty"`

	EffectiveDate  *time.Time `json:"effectiveDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	Priority   int                     `json:"priority"`
	Conditions domain.PolicyConditions `json:"conditions"`
}

// PolicyResponse is the API shape of a policy record.
type PolicyResponse struct {
	PolicyID    string            `json:"policyID"`
	TaxCode     string            `json:"taxCode"`
	Name        string            `json:"name"`
	HTSCode     string            `json:"htsCode"`
	CountryCode string            `json:"countryCode"`
	Type        domain.PolicyType `json:"type"`
	Formula     string            `json:"formula,omitempty"`

	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumAmount *decimal.Decimal `json:"maximumAmount,omitempty"`

	EffectiveDate  *time.Time `json:"effectiveDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	Priority   int                     `json:"priority"`
	Active     bool                    `json:"active"`
	Conditions domain.PolicyConditions `json:"conditions"`
}

// ToPolicyResponse converts a domain policy record to its API shape.
func ToPolicyResponse(p *domain.PolicyRecord) PolicyResponse {
	return PolicyResponse{
		PolicyID:       p.PolicyID,
		TaxCode:        p.TaxCode,
		Name:           p.Name,
		HTSCode:        p.HTSCode,
		CountryCode:    p.CountryCode,
		Type:           p.Type,
		Formula:        p.Formula,
		MinimumAmount:  p.MinimumAmount,
		MaximumAmount:  p.MaximumAmount,
		EffectiveDate:  p.EffectiveDate,
		ExpirationDate: p.ExpirationDate,
		Priority:       p.Priority,
		Active:         p.Active,
		Conditions:     p.Conditions,
	}
}

// ToListPolicyResponse converts a slice of policy records to API shapes.
func ToListPolicyResponse(records []domain.PolicyRecord) []PolicyResponse {
	responses := make([]PolicyResponse, len(records))
	for i := range records {
		responses[i] = ToPolicyResponse(&records[i])
	}
	return responses
}
