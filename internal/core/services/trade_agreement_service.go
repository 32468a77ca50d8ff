package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/clearborder/duty_engine/internal/utils/htscode"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeAgreementService checks preferential-rate eligibility and builds the
// preferential formula that replaces the standard resolution when a claim
// holds up.
type TradeAgreementService struct {
	agreementRepo portsrepo.TradeAgreementRepositoryFacade
}

func NewTradeAgreementService(agreementRepo portsrepo.TradeAgreementRepositoryFacade) *TradeAgreementService {
	return &TradeAgreementService{agreementRepo: agreementRepo}
}

// CheckEligibility resolves an agreement claim for a code. An unknown
// code/agreement pair is an ineligible outcome, not an error; the caller
// keeps the standard formula in that case. When the claim is eligible the
// returned resolution carries the preferential formula at full confidence.
func (s *TradeAgreementService) CheckEligibility(ctx context.Context, code, agreementCode string, hasCertificate bool) (*domain.TradeAgreementInfo, *domain.FormulaResolution, error) {
	info := &domain.TradeAgreementInfo{AgreementCode: agreementCode}

	eligibility, err := s.agreementRepo.FindEligibility(ctx, htscode.Digits(code), agreementCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return info, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up trade agreement eligibility: %w", err)
	}

	info.RequiresCertificate = eligibility.RequiresCertificate
	if !eligibility.Eligible {
		return info, nil, nil
	}
	if eligibility.RequiresCertificate && !hasCertificate {
		return info, nil, nil
	}

	info.Eligible = true
	resolution := &domain.FormulaResolution{
		Formula:     preferentialFormula(eligibility),
		Source:      domain.SourceTradeAgreementPrefix + agreementCode,
		Confidence:  domain.ConfidenceManual,
		FormulaType: domain.FormulaSpecial,
	}
	if vars, verr := formula.Variables(resolution.Formula); verr == nil {
		resolution.Variables = vars
	}
	return info, resolution, nil
}

// preferentialFormula converts a stored rate into an evaluable formula.
func preferentialFormula(e *domain.TradeAgreementEligibility) string {
	switch e.RateType {
	case domain.RatePercentage:
		return "value * " + e.PreferentialRate.Div(decimal.NewFromInt(100)).String()
	case domain.RateSpecific:
		return "weight * " + e.PreferentialRate.String()
	default:
		return e.PreferentialRate.String()
	}
}

// GetEligibility returns the stored eligibility row for a code/agreement pair.
func (s *TradeAgreementService) GetEligibility(ctx context.Context, code, agreementCode string) (*domain.TradeAgreementEligibility, error) {
	eligibility, err := s.agreementRepo.FindEligibility(ctx, htscode.Digits(code), agreementCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("no eligibility for code %s under %s", code, agreementCode))
		}
		return nil, fmt.Errorf("failed to get trade agreement eligibility: %w", err)
	}
	return eligibility, nil
}

// CreateEligibility validates and persists an eligibility row.
func (s *TradeAgreementService) CreateEligibility(ctx context.Context, req dto.CreateEligibilityRequest, creatorUserID string) (*domain.TradeAgreementEligibility, error) {
	code := htscode.Digits(req.Code)
	if len(code) < 6 {
		return nil, apperrors.NewValidationError("code must have at least 6 digits")
	}
	if req.PreferentialRate.IsNegative() {
		return nil, apperrors.NewValidationError("preferential rate must not be negative")
	}

	now := time.Now().UTC()
	eligibility := domain.TradeAgreementEligibility{
		EligibilityID:       uuid.NewString(),
		Code:                code,
		AgreementCode:       req.AgreementCode,
		Eligible:            req.Eligible,
		RateType:            req.RateType,
		PreferentialRate:    req.PreferentialRate,
		RequiresCertificate: req.RequiresCertificate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if err := s.agreementRepo.SaveEligibility(ctx, eligibility); err != nil {
		return nil, fmt.Errorf("failed to save trade agreement eligibility: %w", err)
	}
	return &eligibility, nil
}
