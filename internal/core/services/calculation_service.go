package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/utils"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculationService orchestrates one duty calculation: entry resolution,
// formula selection, base duty evaluation, the trade-agreement check, both
// policy passes, totaling and the audit write.
type CalculationService struct {
	tariffSvc       portssvc.TariffEntrySvcFacade
	resolutionSvc   portssvc.RateResolutionSvc
	policySvc       portssvc.PolicyEngineSvc
	agreementSvc    portssvc.TradeAgreementSvcFacade
	calculationRepo portsrepo.CalculationRepositoryFacade
	analytics       *utils.PosthogClientWrapper
	engineVersion   string
	logger          *slog.Logger
}

func NewCalculationService(
	tariffSvc portssvc.TariffEntrySvcFacade,
	resolutionSvc portssvc.RateResolutionSvc,
	policySvc portssvc.PolicyEngineSvc,
	agreementSvc portssvc.TradeAgreementSvcFacade,
	calculationRepo portsrepo.CalculationRepositoryFacade,
	analytics *utils.PosthogClientWrapper,
	engineVersion string,
	logger *slog.Logger,
) *CalculationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalculationService{
		tariffSvc:       tariffSvc,
		resolutionSvc:   resolutionSvc,
		policySvc:       policySvc,
		agreementSvc:    agreementSvc,
		calculationRepo: calculationRepo,
		analytics:       analytics,
		engineVersion:   engineVersion,
		logger:          logger,
	}
}

// CalculateDuty runs the full calculation flow. The audit write is
// best-effort: a persistence failure is logged, never surfaced, so the caller
// still gets the result.
func (s *CalculationService) CalculateDuty(ctx context.Context, req dto.CalculateDutyRequest) (*domain.CalculationRecord, error) {
	input := req.ToInput()

	entry, err := s.tariffSvc.ResolveEntry(ctx, input.Code, input.Version)
	if err != nil {
		return nil, err
	}

	resolution, err := s.resolutionSvc.ResolveFormula(ctx, entry, input)
	if err != nil {
		return nil, err
	}

	// A valid trade agreement claim replaces the standard formula entirely.
	var agreementInfo *domain.TradeAgreementInfo
	if input.TradeAgreementCode != "" {
		info, preferential, aerr := s.agreementSvc.CheckEligibility(ctx, input.Code, input.TradeAgreementCode, input.TradeAgreementCertificate)
		if aerr != nil {
			return nil, aerr
		}
		agreementInfo = info
		if preferential != nil {
			resolution = preferential
		}
	}

	vars := formula.Vars{
		"value":    input.DeclaredValue,
		"weight":   input.WeightKg,
		"quantity": input.Quantity,
	}
	baseDuty, err := formula.Evaluate(resolution.Formula, vars)
	if err != nil {
		return nil, apperrors.NewEvaluationError(fmt.Sprintf("failed to evaluate formula %q: %v", resolution.Formula, err))
	}
	if baseDuty.IsNegative() {
		baseDuty = decimal.Zero
	}

	totalDuty := baseDuty
	var additional []domain.ChargeLine
	if !resolution.SuppressExtraCharges {
		additional, err = s.policySvc.EvaluateAdditionalTariffs(ctx, input, vars)
		if err != nil {
			return nil, err
		}
		for _, line := range additional {
			totalDuty = totalDuty.Add(line.Amount)
		}
	}

	// The suppression flag covers both policy passes: post-calculation fees
	// are policy rows too.
	var taxes []domain.ChargeLine
	totalTax := decimal.Zero
	if !resolution.SuppressExtraCharges {
		// Taxes see the duty-inclusive amounts.
		taxVars := formula.Vars{
			"value":    input.DeclaredValue,
			"weight":   input.WeightKg,
			"quantity": input.Quantity,
			"duty":     totalDuty,
			"total":    input.DeclaredValue.Add(totalDuty),
		}
		taxes, err = s.policySvc.EvaluatePostCalculationTaxes(ctx, input, taxVars)
		if err != nil {
			return nil, err
		}
		for _, line := range taxes {
			totalTax = totalTax.Add(line.Amount)
		}
	}

	now := time.Now().UTC()
	record := domain.CalculationRecord{
		CalculationID:     uuid.NewString(),
		Code:              input.Code,
		CountryOfOrigin:   input.CountryOfOrigin,
		DeclaredValue:     input.DeclaredValue,
		WeightKg:          input.WeightKg,
		Quantity:          input.Quantity,
		EntryDate:         input.EntryDate,
		BaseDuty:          baseDuty.Round(2),
		AdditionalTariffs: additional,
		Taxes:             taxes,
		TotalDuty:         totalDuty.Round(2),
		TotalTax:          totalTax.Round(2),
		LandedCost:        input.DeclaredValue.Add(totalDuty).Add(totalTax).Round(2),
		FormulaUsed:       resolution.Formula,
		RateSource:        resolution.Source,
		Confidence:        resolution.Confidence,
		TradeAgreement:    agreementInfo,
		EngineVersion:     s.engineVersion,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}

	if err := s.calculationRepo.SaveCalculation(ctx, record); err != nil {
		s.logger.Error("failed to persist calculation record",
			slog.String("calculationID", record.CalculationID),
			slog.String("code", record.Code),
			slog.String("error", err.Error()))
	}

	if s.analytics != nil {
		s.analytics.Enqueue(record.CalculationID, "calculation_completed", map[string]any{
			"code":       record.Code,
			"country":    record.CountryOfOrigin,
			"rateSource": record.RateSource,
			"confidence": record.Confidence,
		})
	}

	return &record, nil
}

// GetCalculationByID retrieves a past calculation record.
func (s *CalculationService) GetCalculationByID(ctx context.Context, calculationID string) (*domain.CalculationRecord, error) {
	record, err := s.calculationRepo.FindCalculationByID(ctx, calculationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("calculation not found: " + calculationID)
		}
		return nil, fmt.Errorf("failed to get calculation %s: %w", calculationID, err)
	}
	return record, nil
}
