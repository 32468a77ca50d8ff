package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/utils/formula"
)

// PolicyEngineSvc evaluates declarative policy records against a shipment.
type PolicyEngineSvc interface {
	// EvaluateAdditionalTariffs runs the pre-duty-total pass over
	// ADD_ON/STANDALONE/CONDITIONAL rows.
	EvaluateAdditionalTariffs(ctx context.Context, input domain.CalculationInput, vars formula.Vars) ([]domain.ChargeLine, error)

	// EvaluatePostCalculationTaxes runs the fee pass over POST_CALCULATION
	// rows; vars must carry the computed duty and total.
	EvaluatePostCalculationTaxes(ctx context.Context, input domain.CalculationInput, vars formula.Vars) ([]domain.ChargeLine, error)
}

// PolicyAdminSvc defines the admin surface over policy records.
type PolicyAdminSvc interface {
	// CreatePolicy persists a new policy record.
	CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, creatorUserID string) (*domain.PolicyRecord, error)

	// ListActivePolicies retrieves active policy records by type.
	ListActivePolicies(ctx context.Context, types []domain.PolicyType) ([]domain.PolicyRecord, error)

	// DeactivatePolicy clears the active flag of a policy record.
	DeactivatePolicy(ctx context.Context, policyID, updaterUserID string) error
}

// PolicySvcFacade combines the engine and admin policy interfaces.
type PolicySvcFacade interface {
	PolicyEngineSvc
	PolicyAdminSvc
}
