package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/dto"
)

// TradeAgreementReaderSvc checks preferential-rate eligibility.
type TradeAgreementReaderSvc interface {
	// CheckEligibility looks up (code, agreement). A missing row means
	// ineligible; a found row that requires a certificate the caller did not
	// supply is ineligible with RequiresCertificate set. When eligible it also
	// returns the preferential formula resolution built from the stored rate.
	CheckEligibility(ctx context.Context, code, agreementCode string, hasCertificate bool) (*domain.TradeAgreementInfo, *domain.FormulaResolution, error)

	// GetEligibility retrieves the raw eligibility row.
	GetEligibility(ctx context.Context, code, agreementCode string) (*domain.TradeAgreementEligibility, error)
}

// TradeAgreementWriterSvc defines the admin surface over eligibility rows.
type TradeAgreementWriterSvc interface {
	// CreateEligibility persists a new eligibility row.
	CreateEligibility(ctx context.Context, req dto.CreateEligibilityRequest, creatorUserID string) (*domain.TradeAgreementEligibility, error)
}

// TradeAgreementSvcFacade combines all trade-agreement service interfaces.
type TradeAgreementSvcFacade interface {
	TradeAgreementReaderSvc
	TradeAgreementWriterSvc
}
