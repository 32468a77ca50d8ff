package repositories

import (
	"context"
	"time"

	"github.com/clearborder/duty_engine/internal/core/domain"
)

// TariffEntryReader defines read operations for the versioned tariff schedule.
type TariffEntryReader interface {
	// FindBestEntry retrieves the authoritative entry for an exact code. When
	// version is non-empty, rows matching that version or its source-version
	// tag are preferred; otherwise active rows win. Ties break on active flag
	// then most-recently-updated.
	FindBestEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error)

	// FindHistoricalSnapshot retrieves the snapshot covering entryDate for an
	// 8-digit code and source year.
	FindHistoricalSnapshot(ctx context.Context, code8 string, entryDate time.Time, year int) (*domain.HistoricalRateSnapshot, error)

	// FindManualOverride retrieves a manual formula override for the exact
	// (code, country, formula type, version) key.
	FindManualOverride(ctx context.Context, code, countryCode string, formulaType domain.FormulaType, version string) (*domain.ManualFormulaOverride, error)
}

// TariffEntryWriter defines write operations for the tariff schedule.
type TariffEntryWriter interface {
	// SaveEntry persists a new tariff code entry.
	SaveEntry(ctx context.Context, entry domain.TariffCodeEntry) error

	// SaveManualOverride persists a new manual formula override.
	SaveManualOverride(ctx context.Context, override domain.ManualFormulaOverride) error
}

// TariffEntryRepositoryFacade combines all tariff-schedule repository interfaces.
type TariffEntryRepositoryFacade interface {
	TariffEntryReader
	TariffEntryWriter
}
