package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTariffEntryRepository struct {
	BaseRepository
}

// newPgxTariffEntryRepository creates a new repository for the tariff schedule.
func newPgxTariffEntryRepository(pool *pgxpool.Pool) portsrepo.TariffEntryRepositoryFacade {
	return &PgxTariffEntryRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.TariffEntryRepositoryFacade = (*PgxTariffEntryRepository)(nil)

const tariffEntryColumns = `
	entry_id, code, chapter, version, source_version, active,
	general_rate_text, legacy_general_rate_text, staged_general_rate_text, other_rate_text,
	general_formula, other_formula, adjusted_formula,
	special_detail, other_rate_countries, metadata,
	created_at, created_by, last_updated_at, last_updated_by`

// FindBestEntry retrieves the authoritative row for an exact code. A version
// pin prefers matching version or source-version tags; otherwise active rows
// win, then most recently updated.
func (r *PgxTariffEntryRepository) FindBestEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error) {
	query := `
		SELECT ` + tariffEntryColumns + `
		FROM tariff_code_entries
		WHERE code = $1
		  AND ($2 = '' OR version = $2 OR source_version = $2)
		ORDER BY (version = $2) DESC, active DESC, last_updated_at DESC
		LIMIT 1;
	`
	row := r.Pool.QueryRow(ctx, query, code, version)
	entry, err := scanTariffEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tariff entry %s: %w", code, err)
	}
	return entry, nil
}

func scanTariffEntry(row pgx.Row) (*domain.TariffCodeEntry, error) {
	var entry domain.TariffCodeEntry
	var specialDetail, metadata []byte
	err := row.Scan(
		&entry.EntryID,
		&entry.Code,
		&entry.Chapter,
		&entry.Version,
		&entry.SourceVersion,
		&entry.Active,
		&entry.GeneralRateText,
		&entry.LegacyGeneralRateText,
		&entry.StagedGeneralRateText,
		&entry.OtherRateText,
		&entry.GeneralFormula,
		&entry.OtherFormula,
		&entry.AdjustedFormula,
		&specialDetail,
		&entry.OtherRateCountries,
		&metadata,
		&entry.CreatedAt,
		&entry.CreatedBy,
		&entry.LastUpdatedAt,
		&entry.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if len(specialDetail) > 0 {
		var detail domain.SpecialProgramDetail
		if err := json.Unmarshal(specialDetail, &detail); err != nil {
			return nil, fmt.Errorf("failed to decode special detail for entry %s: %w", entry.EntryID, err)
		}
		entry.SpecialDetail = &detail
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for entry %s: %w", entry.EntryID, err)
		}
	}
	return &entry, nil
}

// SaveEntry inserts a new tariff code entry. An active entry demotes any
// previously active entry for the same (code, version) in the same
// transaction, so lookups never race between two active rows.
func (r *PgxTariffEntryRepository) SaveEntry(ctx context.Context, entry domain.TariffCodeEntry) error {
	var specialDetail []byte
	if entry.SpecialDetail != nil {
		var err error
		specialDetail, err = json.Marshal(entry.SpecialDetail)
		if err != nil {
			return fmt.Errorf("failed to encode special detail: %w", err)
		}
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if entry.Active {
		demote := `
			UPDATE tariff_code_entries
			SET active = FALSE, last_updated_at = $3, last_updated_by = $4
			WHERE code = $1 AND version = $2 AND active;
		`
		if _, err := tx.Exec(ctx, demote, entry.Code, entry.Version, entry.LastUpdatedAt, entry.LastUpdatedBy); err != nil {
			return fmt.Errorf("failed to demote previous entries for %s: %w", entry.Code, err)
		}
	}

	query := `
		INSERT INTO tariff_code_entries (
			entry_id, code, chapter, version, source_version, active,
			general_rate_text, legacy_general_rate_text, staged_general_rate_text, other_rate_text,
			general_formula, other_formula, adjusted_formula,
			special_detail, other_rate_countries, metadata,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err = tx.Exec(ctx, query,
		entry.EntryID,
		entry.Code,
		entry.Chapter,
		entry.Version,
		entry.SourceVersion,
		entry.Active,
		entry.GeneralRateText,
		entry.LegacyGeneralRateText,
		entry.StagedGeneralRateText,
		entry.OtherRateText,
		entry.GeneralFormula,
		entry.OtherFormula,
		entry.AdjustedFormula,
		specialDetail,
		entry.OtherRateCountries,
		metadata,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save tariff entry %s: %w", entry.Code, err)
	}
	return r.Commit(ctx, tx)
}

// FindHistoricalSnapshot retrieves the snapshot covering entryDate, preferring
// the requested source year and falling back to the latest cover otherwise.
func (r *PgxTariffEntryRepository) FindHistoricalSnapshot(ctx context.Context, code8 string, entryDate time.Time, year int) (*domain.HistoricalRateSnapshot, error) {
	query := `
		SELECT snapshot_id, code8, effective_from, effective_to, source_year,
		       ad_valorem_rate, specific_rate, specific_unit, other_rate, other_unit, raw_rate_text,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM historical_rate_snapshots
		WHERE code8 = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $2)
		ORDER BY (source_year = $3) DESC, effective_from DESC
		LIMIT 1;
	`
	var snapshot domain.HistoricalRateSnapshot
	err := r.Pool.QueryRow(ctx, query, code8, entryDate, year).Scan(
		&snapshot.SnapshotID,
		&snapshot.Code8,
		&snapshot.EffectiveFrom,
		&snapshot.EffectiveTo,
		&snapshot.SourceYear,
		&snapshot.AdValoremRate,
		&snapshot.Specific.Rate,
		&snapshot.Specific.Unit,
		&snapshot.Other.Rate,
		&snapshot.Other.Unit,
		&snapshot.RawRateText,
		&snapshot.CreatedAt,
		&snapshot.CreatedBy,
		&snapshot.LastUpdatedAt,
		&snapshot.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find historical snapshot for %s: %w", code8, err)
	}
	return &snapshot, nil
}

// FindManualOverride retrieves an override for the exact lookup key. An empty
// version matches the most recently updated override of any version.
func (r *PgxTariffEntryRepository) FindManualOverride(ctx context.Context, code, countryCode string, formulaType domain.FormulaType, version string) (*domain.ManualFormulaOverride, error) {
	query := `
		SELECT override_id, code, country_code, formula_type, version, formula, suppress_extra_charges,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM manual_formula_overrides
		WHERE code = $1 AND country_code = $2 AND formula_type = $3
		  AND ($4 = '' OR version = $4)
		ORDER BY last_updated_at DESC
		LIMIT 1;
	`
	var override domain.ManualFormulaOverride
	err := r.Pool.QueryRow(ctx, query, code, countryCode, string(formulaType), version).Scan(
		&override.OverrideID,
		&override.Code,
		&override.CountryCode,
		&override.FormulaType,
		&override.Version,
		&override.Formula,
		&override.SuppressExtraCharges,
		&override.CreatedAt,
		&override.CreatedBy,
		&override.LastUpdatedAt,
		&override.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find manual override for %s/%s: %w", code, countryCode, err)
	}
	return &override, nil
}

// SaveManualOverride inserts a new override, replacing any previous row for
// the same lookup key.
func (r *PgxTariffEntryRepository) SaveManualOverride(ctx context.Context, override domain.ManualFormulaOverride) error {
	query := `
		INSERT INTO manual_formula_overrides (
			override_id, code, country_code, formula_type, version, formula, suppress_extra_charges,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code, country_code, formula_type, version) DO UPDATE SET
			formula = EXCLUDED.formula,
			suppress_extra_charges = EXCLUDED.suppress_extra_charges,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err := r.Pool.Exec(ctx, query,
		override.OverrideID,
		override.Code,
		override.CountryCode,
		string(override.FormulaType),
		override.Version,
		override.Formula,
		override.SuppressExtraCharges,
		override.CreatedAt,
		override.CreatedBy,
		override.LastUpdatedAt,
		override.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save manual override for %s/%s: %w", override.Code, override.CountryCode, err)
	}
	return nil
}
