package pgsql

import (
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TariffRepo:      newPgxTariffEntryRepository(dbPool),
		PolicyRepo:      newPgxPolicyRepository(dbPool),
		AgreementRepo:   newPgxTradeAgreementRepository(dbPool),
		CalculationRepo: newPgxCalculationRepository(dbPool),
		UserRepo:        newPgxUserRepository(dbPool),
	}
}
