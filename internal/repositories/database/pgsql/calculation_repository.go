package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCalculationRepository struct {
	BaseRepository
}

// newPgxCalculationRepository creates a new repository for the calculation audit log.
func newPgxCalculationRepository(pool *pgxpool.Pool) portsrepo.CalculationRepositoryFacade {
	return &PgxCalculationRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.CalculationRepositoryFacade = (*PgxCalculationRepository)(nil)

// SaveCalculation appends one calculation record. Records are never updated.
func (r *PgxCalculationRepository) SaveCalculation(ctx context.Context, record domain.CalculationRecord) error {
	additional, err := json.Marshal(record.AdditionalTariffs)
	if err != nil {
		return fmt.Errorf("failed to encode additional tariffs: %w", err)
	}
	taxes, err := json.Marshal(record.Taxes)
	if err != nil {
		return fmt.Errorf("failed to encode taxes: %w", err)
	}
	var agreement []byte
	if record.TradeAgreement != nil {
		agreement, err = json.Marshal(record.TradeAgreement)
		if err != nil {
			return fmt.Errorf("failed to encode trade agreement info: %w", err)
		}
	}

	query := `
		INSERT INTO calculation_records (
			calculation_id, code, country_of_origin, declared_value, weight_kg, quantity, entry_date,
			base_duty, additional_tariffs, taxes, total_duty, total_tax, landed_cost,
			formula_used, rate_source, confidence, trade_agreement, engine_version,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err = r.Pool.Exec(ctx, query,
		record.CalculationID,
		record.Code,
		record.CountryOfOrigin,
		record.DeclaredValue,
		record.WeightKg,
		record.Quantity,
		record.EntryDate,
		record.BaseDuty,
		additional,
		taxes,
		record.TotalDuty,
		record.TotalTax,
		record.LandedCost,
		record.FormulaUsed,
		record.RateSource,
		record.Confidence,
		agreement,
		record.EngineVersion,
		record.CreatedAt,
		record.CreatedBy,
		record.LastUpdatedAt,
		record.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save calculation %s: %w", record.CalculationID, err)
	}
	return nil
}

// FindCalculationByID retrieves a calculation record by id.
func (r *PgxCalculationRepository) FindCalculationByID(ctx context.Context, calculationID string) (*domain.CalculationRecord, error) {
	query := `
		SELECT calculation_id, code, country_of_origin, declared_value, weight_kg, quantity, entry_date,
		       base_duty, additional_tariffs, taxes, total_duty, total_tax, landed_cost,
		       formula_used, rate_source, confidence, trade_agreement, engine_version,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM calculation_records
		WHERE calculation_id = $1;
	`
	var record domain.CalculationRecord
	var additional, taxes, agreement []byte
	err := r.Pool.QueryRow(ctx, query, calculationID).Scan(
		&record.CalculationID,
		&record.Code,
		&record.CountryOfOrigin,
		&record.DeclaredValue,
		&record.WeightKg,
		&record.Quantity,
		&record.EntryDate,
		&record.BaseDuty,
		&additional,
		&taxes,
		&record.TotalDuty,
		&record.TotalTax,
		&record.LandedCost,
		&record.FormulaUsed,
		&record.RateSource,
		&record.Confidence,
		&agreement,
		&record.EngineVersion,
		&record.CreatedAt,
		&record.CreatedBy,
		&record.LastUpdatedAt,
		&record.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find calculation %s: %w", calculationID, err)
	}

	if len(additional) > 0 {
		if err := json.Unmarshal(additional, &record.AdditionalTariffs); err != nil {
			return nil, fmt.Errorf("failed to decode additional tariffs for %s: %w", calculationID, err)
		}
	}
	if len(taxes) > 0 {
		if err := json.Unmarshal(taxes, &record.Taxes); err != nil {
			return nil, fmt.Errorf("failed to decode taxes for %s: %w", calculationID, err)
		}
	}
	if len(agreement) > 0 {
		var info domain.TradeAgreementInfo
		if err := json.Unmarshal(agreement, &info); err != nil {
			return nil, fmt.Errorf("failed to decode trade agreement info for %s: %w", calculationID, err)
		}
		record.TradeAgreement = &info
	}
	return &record, nil
}
