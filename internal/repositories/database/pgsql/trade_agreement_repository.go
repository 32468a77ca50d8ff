package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTradeAgreementRepository struct {
	BaseRepository
}

// newPgxTradeAgreementRepository creates a new repository for preferential eligibility.
func newPgxTradeAgreementRepository(pool *pgxpool.Pool) portsrepo.TradeAgreementRepositoryFacade {
	return &PgxTradeAgreementRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.TradeAgreementRepositoryFacade = (*PgxTradeAgreementRepository)(nil)

// FindEligibility retrieves the eligibility row for a (code, agreement) pair.
func (r *PgxTradeAgreementRepository) FindEligibility(ctx context.Context, code, agreementCode string) (*domain.TradeAgreementEligibility, error) {
	query := `
		SELECT eligibility_id, code, agreement_code, eligible, requires_certificate,
		       preferential_rate, rate_type,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM trade_agreement_eligibility
		WHERE code = $1 AND agreement_code = $2;
	`
	var eligibility domain.TradeAgreementEligibility
	err := r.Pool.QueryRow(ctx, query, code, agreementCode).Scan(
		&eligibility.EligibilityID,
		&eligibility.Code,
		&eligibility.AgreementCode,
		&eligibility.Eligible,
		&eligibility.RequiresCertificate,
		&eligibility.PreferentialRate,
		&eligibility.RateType,
		&eligibility.CreatedAt,
		&eligibility.CreatedBy,
		&eligibility.LastUpdatedAt,
		&eligibility.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find eligibility for %s/%s: %w", code, agreementCode, err)
	}
	return &eligibility, nil
}

// SaveEligibility inserts an eligibility row, replacing any previous row for
// the same (code, agreement) pair.
func (r *PgxTradeAgreementRepository) SaveEligibility(ctx context.Context, eligibility domain.TradeAgreementEligibility) error {
	query := `
		INSERT INTO trade_agreement_eligibility (
			eligibility_id, code, agreement_code, eligible, requires_certificate,
			preferential_rate, rate_type,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code, agreement_code) DO UPDATE SET
			eligible = EXCLUDED.eligible,
			requires_certificate = EXCLUDED.requires_certificate,
			preferential_rate = EXCLUDED.preferential_rate,
			rate_type = EXCLUDED.rate_type,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err := r.Pool.Exec(ctx, query,
		eligibility.EligibilityID,
		eligibility.Code,
		eligibility.AgreementCode,
		eligibility.Eligible,
		eligibility.RequiresCertificate,
		eligibility.PreferentialRate,
		string(eligibility.RateType),
		eligibility.CreatedAt,
		eligibility.CreatedBy,
		eligibility.LastUpdatedAt,
		eligibility.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save eligibility for %s/%s: %w", eligibility.Code, eligibility.AgreementCode, err)
	}
	return nil
}
