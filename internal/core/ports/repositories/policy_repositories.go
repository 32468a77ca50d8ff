package repositories

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
)

// PolicyReader defines read operations for policy (extra charge) records.
type PolicyReader interface {
	// FindActiveByTypes retrieves all active policy records of the given
	// types, ordered by ascending priority.
	FindActiveByTypes(ctx context.Context, types []domain.PolicyType) ([]domain.PolicyRecord, error)

	// FindPolicyByID retrieves one policy record.
	FindPolicyByID(ctx context.Context, policyID string) (*domain.PolicyRecord, error)
}

// PolicyWriter defines write operations for policy records.
type PolicyWriter interface {
	// SavePolicy persists a new policy record.
	SavePolicy(ctx context.Context, record domain.PolicyRecord) error

	// DeactivatePolicy clears the active flag of a policy record.
	DeactivatePolicy(ctx context.Context, policyID string, updaterUserID string) error
}

// PolicyRepositoryFacade combines all policy repository interfaces.
type PolicyRepositoryFacade interface {
	PolicyReader
	PolicyWriter
}
