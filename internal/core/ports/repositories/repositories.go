package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TariffRepo      TariffEntryRepositoryFacade
	PolicyRepo      PolicyRepositoryFacade
	AgreementRepo   TradeAgreementRepositoryFacade
	CalculationRepo CalculationRepositoryFacade
	UserRepo        UserRepositoryFacade
}
