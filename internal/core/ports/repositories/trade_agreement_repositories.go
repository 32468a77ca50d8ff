package repositories

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
)

// TradeAgreementReader defines read operations for preferential eligibility.
type TradeAgreementReader interface {
	// FindEligibility retrieves the eligibility row for a (code, agreement)
	// pair, or ErrNotFound.
	FindEligibility(ctx context.Context, code, agreementCode string) (*domain.TradeAgreementEligibility, error)
}

// TradeAgreementWriter defines write operations for preferential eligibility.
type TradeAgreementWriter interface {
	// SaveEligibility persists a new eligibility row.
	SaveEligibility(ctx context.Context, eligibility domain.TradeAgreementEligibility) error
}

// TradeAgreementRepositoryFacade combines all trade-agreement repository interfaces.
type TradeAgreementRepositoryFacade interface {
	TradeAgreementReader
	TradeAgreementWriter
}
