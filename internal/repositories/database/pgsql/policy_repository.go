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

type PgxPolicyRepository struct {
	BaseRepository
}

// newPgxPolicyRepository creates a new repository for policy records.
func newPgxPolicyRepository(pool *pgxpool.Pool) portsrepo.PolicyRepositoryFacade {
	return &PgxPolicyRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.PolicyRepositoryFacade = (*PgxPolicyRepository)(nil)

const policyColumns = `
	policy_id, tax_code, name, hts_code, country_code, type, formula,
	minimum_amount, maximum_amount, effective_date, expiration_date,
	priority, active, conditions,
	created_at, created_by, last_updated_at, last_updated_by`

// FindActiveByTypes retrieves all active policy records of the given types,
// ordered by ascending priority.
func (r *PgxPolicyRepository) FindActiveByTypes(ctx context.Context, types []domain.PolicyType) ([]domain.PolicyRecord, error) {
	typeStrings := make([]string, len(types))
	for i, t := range types {
		typeStrings[i] = string(t)
	}

	query := `
		SELECT ` + policyColumns + `
		FROM policy_records
		WHERE active AND type = ANY($1)
		ORDER BY priority, policy_id;
	`
	rows, err := r.Pool.Query(ctx, query, typeStrings)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy records: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, scanPolicyRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan policy records: %w", err)
	}
	return records, nil
}

// FindPolicyByID retrieves one policy record.
func (r *PgxPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.PolicyRecord, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM policy_records
		WHERE policy_id = $1;
	`
	rows, err := r.Pool.Query(ctx, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy %s: %w", policyID, err)
	}
	record, err := pgx.CollectOneRow(rows, scanPolicyRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find policy %s: %w", policyID, err)
	}
	return &record, nil
}

func scanPolicyRecord(row pgx.CollectableRow) (domain.PolicyRecord, error) {
	var record domain.PolicyRecord
	var conditions []byte
	err := row.Scan(
		&record.PolicyID,
		&record.TaxCode,
		&record.Name,
		&record.HTSCode,
		&record.CountryCode,
		&record.Type,
		&record.Formula,
		&record.MinimumAmount,
		&record.MaximumAmount,
		&record.EffectiveDate,
		&record.ExpirationDate,
		&record.Priority,
		&record.Active,
		&conditions,
		&record.CreatedAt,
		&record.CreatedBy,
		&record.LastUpdatedAt,
		&record.LastUpdatedBy,
	)
	if err != nil {
		return record, err
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &record.Conditions); err != nil {
			return record, fmt.Errorf("failed to decode conditions for policy %s: %w", record.PolicyID, err)
		}
	}
	return record, nil
}

// SavePolicy inserts a new policy record.
func (r *PgxPolicyRepository) SavePolicy(ctx context.Context, record domain.PolicyRecord) error {
	conditions, err := json.Marshal(record.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}

	query := `
		INSERT INTO policy_records (
			policy_id, tax_code, name, hts_code, country_code, type, formula,
			minimum_amount, maximum_amount, effective_date, expiration_date,
			priority, active, conditions,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err = r.Pool.Exec(ctx, query,
		record.PolicyID,
		record.TaxCode,
		record.Name,
		record.HTSCode,
		record.CountryCode,
		string(record.Type),
		record.Formula,
		record.MinimumAmount,
		record.MaximumAmount,
		record.EffectiveDate,
		record.ExpirationDate,
		record.Priority,
		record.Active,
		conditions,
		record.CreatedAt,
		record.CreatedBy,
		record.LastUpdatedAt,
		record.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy %s: %w", record.PolicyID, err)
	}
	return nil
}

// DeactivatePolicy clears the active flag of a policy record.
func (r *PgxPolicyRepository) DeactivatePolicy(ctx context.Context, policyID string, updaterUserID string) error {
	query := `
		UPDATE policy_records
		SET active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE policy_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, policyID, time.Now().UTC(), updaterUserID)
	if err != nil {
		return fmt.Errorf("failed to deactivate policy %s: %w", policyID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
