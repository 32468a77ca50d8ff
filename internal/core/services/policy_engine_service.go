package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/clearborder/duty_engine/internal/utils/htscode"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyEngineConfig carries the rule-engine parameters that vary by
// deployment.
type PolicyEngineConfig struct {
	// EUCountries overrides the built-in member list when non-empty.
	EUCountries []string
	// ReciprocalTaxCodePrefix marks the broad-baseline tariff family that
	// conditional rules can suppress.
	ReciprocalTaxCodePrefix string
}

// DefaultPolicyEngineConfig returns the standard rule-engine parameters.
func DefaultPolicyEngineConfig() PolicyEngineConfig {
	return PolicyEngineConfig{
		ReciprocalTaxCodePrefix: "RECIP_",
	}
}

// PolicyEngineService evaluates policy records against calculation inputs.
// It runs in two passes: additional tariffs on the declared value before
// totaling, then post-calculation taxes on the duty-inclusive totals.
type PolicyEngineService struct {
	policyRepo portsrepo.PolicyRepositoryFacade
	matcher    *CountryMatcher
	cfg        PolicyEngineConfig
	logger     *slog.Logger
}

func NewPolicyEngineService(policyRepo portsrepo.PolicyRepositoryFacade, cfg PolicyEngineConfig, logger *slog.Logger) *PolicyEngineService {
	if cfg.ReciprocalTaxCodePrefix == "" {
		cfg.ReciprocalTaxCodePrefix = "RECIP_"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyEngineService{
		policyRepo: policyRepo,
		matcher:    NewCountryMatcher(cfg.EUCountries),
		cfg:        cfg,
		logger:     logger,
	}
}

// EvaluateAdditionalTariffs runs the first pass: add-on, standalone and
// conditional rules charged against the declared value.
func (s *PolicyEngineService) EvaluateAdditionalTariffs(ctx context.Context, input domain.CalculationInput, vars formula.Vars) ([]domain.ChargeLine, error) {
	rules, err := s.policyRepo.FindActiveByTypes(ctx, []domain.PolicyType{
		domain.PolicyAddOn,
		domain.PolicyStandalone,
		domain.PolicyConditional,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load additional tariff rules: %w", err)
	}

	applicable := s.applicableRules(rules, input)

	// Conditional rules evaluate first: any match carrying the
	// reciprocal-baseline exclusion suppresses the wildcard-scoped RECIP_
	// family for this shipment. Conditional rules gate, they never charge.
	suppressReciprocal := false
	for _, rule := range applicable {
		if rule.Type == domain.PolicyConditional && rule.Conditions.ExcludesReciprocalBaseline {
			suppressReciprocal = true
		}
	}

	var lines []domain.ChargeLine
	for _, rule := range applicable {
		if rule.Type == domain.PolicyConditional {
			continue
		}
		if suppressReciprocal && s.isReciprocalBaseline(rule) {
			continue
		}
		line, ok := s.chargeLine(rule, vars, nil, nil)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// isReciprocalBaseline identifies the baseline rows that a matched exclusion
// suppresses: the reciprocal taxCode prefix combined with the wildcard country
// scope. A prefixed row pinned to a specific country is not a baseline row.
func (s *PolicyEngineService) isReciprocalBaseline(rule domain.PolicyRecord) bool {
	return strings.HasPrefix(rule.TaxCode, s.cfg.ReciprocalTaxCodePrefix) && rule.CountryCode == domain.CountryAll
}

// EvaluatePostCalculationTaxes runs the second pass over duty-inclusive
// variables. Amounts are clamped to the rule's minimum and maximum before
// rounding.
func (s *PolicyEngineService) EvaluatePostCalculationTaxes(ctx context.Context, input domain.CalculationInput, vars formula.Vars) ([]domain.ChargeLine, error) {
	rules, err := s.policyRepo.FindActiveByTypes(ctx, []domain.PolicyType{domain.PolicyPostCalculation})
	if err != nil {
		return nil, fmt.Errorf("failed to load post-calculation tax rules: %w", err)
	}

	var lines []domain.ChargeLine
	for _, rule := range s.applicableRules(rules, input) {
		line, ok := s.chargeLine(rule, vars, rule.MinimumAmount, rule.MaximumAmount)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// applicableRules filters to rules whose scope, window and conditions all
// match the shipment.
func (s *PolicyEngineService) applicableRules(rules []domain.PolicyRecord, input domain.CalculationInput) []domain.PolicyRecord {
	var out []domain.PolicyRecord
	for _, rule := range rules {
		if !s.scopeMatches(rule, input) {
			continue
		}
		if !windowContains(rule, input.EntryDate) {
			continue
		}
		if !s.conditionsMatch(rule.Conditions, input) {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// chargeLine evaluates one rule's formula, skipping marker-only rules,
// evaluation failures and non-positive amounts.
func (s *PolicyEngineService) chargeLine(rule domain.PolicyRecord, vars formula.Vars, min, max *decimal.Decimal) (domain.ChargeLine, bool) {
	if rule.Conditions.MarkerOnly || rule.Formula == "" {
		return domain.ChargeLine{}, false
	}
	amount, err := formula.Evaluate(rule.Formula, vars)
	if err != nil {
		s.logger.Warn("policy formula evaluation failed, skipping rule",
			slog.String("policyID", rule.PolicyID),
			slog.String("taxCode", rule.TaxCode),
			slog.String("error", err.Error()))
		return domain.ChargeLine{}, false
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ChargeLine{}, false
	}
	if min != nil && amount.LessThan(*min) {
		amount = *min
	}
	if max != nil && amount.GreaterThan(*max) {
		amount = *max
	}
	return domain.ChargeLine{
		PolicyID: rule.PolicyID,
		TaxCode:  rule.TaxCode,
		Name:     rule.Name,
		Formula:  rule.Formula,
		Amount:   amount.Round(2),
	}, true
}

// scopeMatches checks the rule's code scope ("*" wildcard, 2-digit chapter,
// or full code) and its country scope.
func (s *PolicyEngineService) scopeMatches(rule domain.PolicyRecord, input domain.CalculationInput) bool {
	code := htscode.Digits(input.Code)
	switch {
	case rule.HTSCode == "" || rule.HTSCode == "*":
		// applies to every code
	case len(htscode.Digits(rule.HTSCode)) == 2:
		if htscode.Chapter(code) != htscode.Digits(rule.HTSCode) {
			return false
		}
	default:
		if htscode.Digits(rule.HTSCode) != code {
			return false
		}
	}
	return s.matcher.Match(rule.CountryCode, input.CountryOfOrigin)
}

// windowContains applies the rule's effective window at date granularity.
// Both edges are inclusive; comparisons anchor on UTC noon so that timezone
// offsets on the entry date cannot shift the calendar day.
func windowContains(rule domain.PolicyRecord, entryDate time.Time) bool {
	day := atNoonUTC(entryDate)
	if rule.EffectiveDate != nil && day.Before(atNoonUTC(*rule.EffectiveDate)) {
		return false
	}
	if rule.ExpirationDate != nil && day.After(atNoonUTC(*rule.ExpirationDate)) {
		return false
	}
	return true
}

func atNoonUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 12, 0, 0, 0, time.UTC)
}

// conditionsMatch checks the typed condition block against the shipment.
func (s *PolicyEngineService) conditionsMatch(c domain.PolicyConditions, input domain.CalculationInput) bool {
	if c.MinValue != nil && input.DeclaredValue.LessThan(*c.MinValue) {
		return false
	}
	if c.MaxValue != nil && input.DeclaredValue.GreaterThan(*c.MaxValue) {
		return false
	}
	if len(c.AllowedCountries) > 0 && !s.matcher.MatchAny(c.AllowedCountries, input.CountryOfOrigin) {
		return false
	}
	if len(c.ExcludedCountries) > 0 && s.matcher.MatchAny(c.ExcludedCountries, input.CountryOfOrigin) {
		return false
	}
	for _, flag := range c.RequiredFlags {
		if !s.flagSet(flag, input) {
			return false
		}
	}
	if c.TransportMode != nil && input.TransportMode != *c.TransportMode {
		return false
	}
	if c.RequiredHeading != nil && !headingSelected(*c.RequiredHeading, input.SelectedHeadings) {
		return false
	}
	if c.ExceptionHeading != nil && headingSelected(*c.ExceptionHeading, input.SelectedHeadings) {
		return false
	}
	if c.TradeAgreementCode != nil && input.TradeAgreementCode != *c.TradeAgreementCode {
		return false
	}
	return true
}

// flagSet resolves a required flag from the declared additional inputs. The
// certificate flag also honors the structured request field.
func (s *PolicyEngineService) flagSet(flag string, input domain.CalculationInput) bool {
	if input.AdditionalInputs[flag] {
		return true
	}
	if flag == "tradeAgreementCertificate" {
		return input.TradeAgreementCertificate
	}
	return false
}

func headingSelected(heading string, selected []string) bool {
	for _, s := range selected {
		if htscode.SameHeading(heading, s) {
			return true
		}
	}
	return false
}

// CreatePolicy validates and persists a new policy rule.
func (s *PolicyEngineService) CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, creatorUserID string) (*domain.PolicyRecord, error) {
	if req.Formula != "" {
		if err := formula.Validate(req.Formula); err != nil {
			return nil, apperrors.NewValidationError("invalid policy formula: " + err.Error())
		}
	}
	if !req.Conditions.MarkerOnly && req.Formula == "" {
		return nil, apperrors.NewValidationError("policy formula is required unless the rule is marker-only")
	}

	now := time.Now().UTC()
	record := domain.PolicyRecord{
		PolicyID:       uuid.NewString(),
		TaxCode:        req.TaxCode,
		Name:           req.Name,
		HTSCode:        req.HTSCode,
		CountryCode:    req.CountryCode,
		Type:           req.Type,
		Formula:        req.Formula,
		MinimumAmount:  req.MinimumAmount,
		MaximumAmount:  req.MaximumAmount,
		EffectiveDate:  req.EffectiveDate,
		ExpirationDate: req.ExpirationDate,
		Priority:       req.Priority,
		Active:         true,
		Conditions:     req.Conditions,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if err := s.policyRepo.SavePolicy(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}
	return &record, nil
}

// ListActivePolicies returns active rules of the given types; an empty filter
// means all types.
func (s *PolicyEngineService) ListActivePolicies(ctx context.Context, types []domain.PolicyType) ([]domain.PolicyRecord, error) {
	if len(types) == 0 {
		types = []domain.PolicyType{
			domain.PolicyAddOn,
			domain.PolicyPostCalculation,
			domain.PolicyStandalone,
			domain.PolicyConditional,
		}
	}
	rules, err := s.policyRepo.FindActiveByTypes(ctx, types)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return rules, nil
}

// DeactivatePolicy marks a rule inactive. Deactivating an unknown rule is a
// NotFound, not a no-op.
func (s *PolicyEngineService) DeactivatePolicy(ctx context.Context, policyID, updaterUserID string) error {
	if _, err := s.policyRepo.FindPolicyByID(ctx, policyID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("policy not found: " + policyID)
		}
		return fmt.Errorf("failed to load policy %s: %w", policyID, err)
	}
	if err := s.policyRepo.DeactivatePolicy(ctx, policyID, updaterUserID); err != nil {
		return fmt.Errorf("failed to deactivate policy %s: %w", policyID, err)
	}
	return nil
}
