package services

import (
	"log/slog"

	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/utils"
)

// ContainerConfig bundles the knobs the service layer needs from the outside.
type ContainerConfig struct {
	Resolution    ResolutionConfig
	PolicyEngine  PolicyEngineConfig
	Auth          AuthConfig
	EngineVersion string
}

// NewContainer wires the full service graph over the repository provider.
// notes may be nil when no knowledge base is configured; analytics may be an
// uninitialized wrapper.
func NewContainer(
	repos *portsrepo.RepositoryProvider,
	patterns portssvc.PatternFormulaGenerator,
	notes portssvc.NoteResolverSvc,
	analytics *utils.PosthogClientWrapper,
	cfg ContainerConfig,
	logger *slog.Logger,
) *portssvc.ServiceContainer {
	tariffSvc := NewTariffEntryService(repos.TariffRepo)
	resolutionSvc := NewRateResolutionService(repos.TariffRepo, patterns, notes, cfg.Resolution, logger)
	policySvc := NewPolicyEngineService(repos.PolicyRepo, cfg.PolicyEngine, logger)
	agreementSvc := NewTradeAgreementService(repos.AgreementRepo)
	calculationSvc := NewCalculationService(
		tariffSvc,
		resolutionSvc,
		policySvc,
		agreementSvc,
		repos.CalculationRepo,
		analytics,
		cfg.EngineVersion,
		logger,
	)

	return &portssvc.ServiceContainer{
		Calculation:    calculationSvc,
		TariffEntry:    tariffSvc,
		RateResolution: resolutionSvc,
		Policy:         policySvc,
		TradeAgreement: agreementSvc,
		User:           NewUserService(repos.UserRepo),
		Auth:           NewAuthService(repos.UserRepo, cfg.Auth),
	}
}

// Compile-time interface checks.
var (
	_ portssvc.CalculationSvcFacade    = (*CalculationService)(nil)
	_ portssvc.TariffEntrySvcFacade    = (*TariffEntryService)(nil)
	_ portssvc.RateResolutionSvc       = (*RateResolutionService)(nil)
	_ portssvc.PolicySvcFacade         = (*PolicyEngineService)(nil)
	_ portssvc.TradeAgreementSvcFacade = (*TradeAgreementService)(nil)
	_ portssvc.UserSvcFacade           = (*UserService)(nil)
	_ portssvc.AuthSvcFacade           = (*AuthService)(nil)
)
