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
)

// TariffEntryService provides schedule lookups with code-hierarchy fallback
// plus the admin write surface for entries and manual overrides.
type TariffEntryService struct {
	tariffRepo portsrepo.TariffEntryRepositoryFacade
}

// NewTariffEntryService creates a new TariffEntryService.
func NewTariffEntryService(tariffRepo portsrepo.TariffEntryRepositoryFacade) *TariffEntryService {
	return &TariffEntryService{tariffRepo: tariffRepo}
}

// ResolveEntry walks the code hierarchy (10 -> 8 -> 6 digits, most specific
// first) and returns the first entry that carries any usable rate field.
// Headings often lack computable rates while their parent subheading does, so
// when no candidate qualifies the most specific entry found at all is returned
// as a best-effort parent rather than silently picking an unrelated sibling.
func (s *TariffEntryService) ResolveEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error) {
	candidates := htscode.AncestorCandidates(code)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: tariff code %q must contain at least 6 digits", apperrors.ErrValidation, code)
	}

	var fallback *domain.TariffCodeEntry
	for _, candidate := range candidates {
		entry, err := s.tariffRepo.FindBestEntry(ctx, candidate, version)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to look up tariff entry %s: %w", candidate, err)
		}
		if entry.HasUsableRate() {
			return entry, nil
		}
		if fallback == nil {
			fallback = entry
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, apperrors.NewNotFoundError("no tariff entry for code " + code)
}

// GetEntry retrieves the best entry for an exact code without hierarchy fallback.
func (s *TariffEntryService) GetEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error) {
	digits := htscode.Digits(code)
	if digits == "" {
		return nil, fmt.Errorf("%w: tariff code %q contains no digits", apperrors.ErrValidation, code)
	}
	entry, err := s.tariffRepo.FindBestEntry(ctx, digits, version)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateEntry validates and persists a new tariff code entry.
func (s *TariffEntryService) CreateEntry(ctx context.Context, req dto.CreateTariffEntryRequest, creatorUserID string) (*domain.TariffCodeEntry, error) {
	for _, f := range []string{req.GeneralFormula, req.OtherFormula, req.AdjustedFormula} {
		if f == "" {
			continue
		}
		if err := formula.Validate(f); err != nil {
			return nil, fmt.Errorf("%w: invalid rate formula %q", apperrors.ErrValidation, f)
		}
	}

	code := htscode.Digits(req.Code)
	now := time.Now()
	entry := domain.TariffCodeEntry{
		EntryID:               uuid.NewString(),
		Code:                  code,
		Chapter:               htscode.Chapter(code),
		Version:               req.Version,
		SourceVersion:         req.SourceVersion,
		Active:                req.Active,
		GeneralRateText:       req.GeneralRateText,
		LegacyGeneralRateText: req.LegacyGeneralRateText,
		StagedGeneralRateText: req.StagedGeneralRateText,
		OtherRateText:         req.OtherRateText,
		GeneralFormula:        req.GeneralFormula,
		OtherFormula:          req.OtherFormula,
		AdjustedFormula:       req.AdjustedFormula,
		OtherRateCountries:    req.OtherRateCountries,
		Metadata: domain.EntryMetadata{
			SynthesisAdjustmentRate: req.SynthesisAdjustmentRate,
			ReciprocalOnlyBaseline:  req.ReciprocalOnlyBaseline,
			ProgramSignals:          req.ProgramSignals,
		},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if req.SpecialDetail != nil {
		if req.SpecialDetail.Formula != "" {
			if err := formula.Validate(req.SpecialDetail.Formula); err != nil {
				return nil, fmt.Errorf("%w: invalid special-program formula %q", apperrors.ErrValidation, req.SpecialDetail.Formula)
			}
		}
		entry.SpecialDetail = &domain.SpecialProgramDetail{
			Formula:           req.SpecialDetail.Formula,
			Headings:          req.SpecialDetail.Headings,
			EligibleCountries: req.SpecialDetail.EligibleCountries,
		}
	}

	if err := s.tariffRepo.SaveEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create tariff entry in service: %w", err)
	}
	return &entry, nil
}

// CreateOverride validates and persists a new manual formula override.
func (s *TariffEntryService) CreateOverride(ctx context.Context, req dto.CreateOverrideRequest, creatorUserID string) (*domain.ManualFormulaOverride, error) {
	if err := formula.Validate(req.Formula); err != nil {
		return nil, fmt.Errorf("%w: invalid override formula %q", apperrors.ErrValidation, req.Formula)
	}

	now := time.Now()
	override := domain.ManualFormulaOverride{
		OverrideID:           uuid.NewString(),
		Code:                 htscode.Digits(req.Code),
		CountryCode:          req.CountryCode,
		FormulaType:          req.FormulaType,
		Version:              req.Version,
		Formula:              req.Formula,
		SuppressExtraCharges: req.SuppressExtraCharges,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.tariffRepo.SaveManualOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to create manual override in service: %w", err)
	}
	return &override, nil
}
