package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/dto"
)

// TariffEntryReaderSvc defines read operations over the tariff schedule.
type TariffEntryReaderSvc interface {
	// ResolveEntry locates the best entry for a tariff code, walking the code
	// hierarchy (10 -> 8 -> 6 digits) and preferring the most specific entry
	// that carries usable rate data. Falls back to the most specific entry
	// found at all, else ErrNotFound.
	ResolveEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error)

	// GetEntry retrieves the best entry for an exact code without hierarchy
	// fallback.
	GetEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error)
}

// TariffEntryWriterSvc defines write operations over the tariff schedule.
type TariffEntryWriterSvc interface {
	// CreateEntry persists a new tariff code entry.
	CreateEntry(ctx context.Context, req dto.CreateTariffEntryRequest, creatorUserID string) (*domain.TariffCodeEntry, error)

	// CreateOverride persists a new manual formula override.
	CreateOverride(ctx context.Context, req dto.CreateOverrideRequest, creatorUserID string) (*domain.ManualFormulaOverride, error)
}

// TariffEntrySvcFacade combines all tariff-schedule service interfaces.
type TariffEntrySvcFacade interface {
	TariffEntryReaderSvc
	TariffEntryWriterSvc
}
