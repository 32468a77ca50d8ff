package repositories

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
)

// CalculationWriter is the audit sink: one append-only write per calculation.
// Records are never mutated after save.
type CalculationWriter interface {
	// SaveCalculation persists a calculation record.
	SaveCalculation(ctx context.Context, record domain.CalculationRecord) error
}

// CalculationReader defines read operations for calculation records.
type CalculationReader interface {
	// FindCalculationByID retrieves a calculation record by its generated id.
	FindCalculationByID(ctx context.Context, calculationID string) (*domain.CalculationRecord, error)
}

// CalculationRepositoryFacade combines all calculation repository interfaces.
type CalculationRepositoryFacade interface {
	CalculationReader
	CalculationWriter
}
