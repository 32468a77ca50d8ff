package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/dto"
)

// CalculationSvcFacade is the orchestrator: one request/response cycle
// composing rate resolution, evaluation, the trade-agreement check and both
// policy passes, plus the audit write.
type CalculationSvcFacade interface {
	// CalculateDuty runs a full calculation and records it for audit.
	CalculateDuty(ctx context.Context, req dto.CalculateDutyRequest) (*domain.CalculationRecord, error)

	// GetCalculationByID retrieves a past calculation record.
	GetCalculationByID(ctx context.Context, calculationID string) (*domain.CalculationRecord, error)
}
