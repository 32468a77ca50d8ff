package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/core/services"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock PolicyRepository ---
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) FindActiveByTypes(ctx context.Context, types []domain.PolicyType) ([]domain.PolicyRecord, error) {
	args := m.Called(ctx, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PolicyRecord), args.Error(1)
}

func (m *MockPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.PolicyRecord, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PolicyRecord), args.Error(1)
}

func (m *MockPolicyRepository) SavePolicy(ctx context.Context, policy domain.PolicyRecord) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) DeactivatePolicy(ctx context.Context, policyID, updaterUserID string) error {
	args := m.Called(ctx, policyID, updaterUserID)
	return args.Error(0)
}

// --- Test Suite ---
type PolicyEngineServiceTestSuite struct {
	suite.Suite
	mockRepo *MockPolicyRepository
	service  *services.PolicyEngineService
}

func (suite *PolicyEngineServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockPolicyRepository)
	suite.service = services.NewPolicyEngineService(suite.mockRepo, services.DefaultPolicyEngineConfig(), nil)
}

func policyInput() domain.CalculationInput {
	return domain.CalculationInput{
		Code:            "0101.21.0000",
		CountryOfOrigin: "CN",
		DeclaredValue:   decimal.NewFromInt(1000),
		EntryDate:       time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	}
}

func policyVars(value decimal.Decimal) formula.Vars {
	return formula.Vars{
		"value":    value,
		"weight":   decimal.Zero,
		"quantity": decimal.Zero,
	}
}

func addOnRule(taxCode, country, code, f string) domain.PolicyRecord {
	return domain.PolicyRecord{
		PolicyID:    "pol-" + taxCode,
		TaxCode:     taxCode,
		Name:        taxCode,
		HTSCode:     code,
		CountryCode: country,
		Type:        domain.PolicyAddOn,
		Formula:     f,
		Active:      true,
	}
}

func (suite *PolicyEngineServiceTestSuite) TestAddOnRuleMatches() {
	ctx := context.Background()
	input := policyInput()
	rules := []domain.PolicyRecord{addOnRule("S301", "CN", "*", "value * 0.25")}

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return(rules, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.Equal("S301", lines[0].TaxCode)
	suite.True(lines[0].Amount.Equal(decimal.NewFromInt(250)))
}

func (suite *PolicyEngineServiceTestSuite) TestDateWindowBoundaries() {
	ctx := context.Background()
	effective := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	expiration := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	rule := addOnRule("WINDOW", "ALL", "0101210000", "value * 0.1")
	rule.EffectiveDate = &effective
	rule.ExpirationDate = &expiration

	input := policyInput()
	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return([]domain.PolicyRecord{rule}, nil)

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.True(lines[0].Amount.Equal(decimal.NewFromInt(100)))

	// Inclusive on both edges.
	input.EntryDate = effective
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)

	input.EntryDate = expiration
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)

	// Outside the window.
	input.EntryDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestTimezoneOffsetDoesNotShiftWindow() {
	ctx := context.Background()
	effective := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	rule := addOnRule("WINDOW", "ALL", "*", "value * 0.1")
	rule.EffectiveDate = &effective

	input := policyInput()
	// Feb 9 23:30 in UTC-5 is Feb 10 04:30 UTC, so the rule applies.
	loc := time.FixedZone("UTC-5", -5*3600)
	input.EntryDate = time.Date(2026, 2, 9, 23, 30, 0, 0, loc)

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return([]domain.PolicyRecord{rule}, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)
}

func (suite *PolicyEngineServiceTestSuite) TestChapterScopeMatch() {
	ctx := context.Background()
	input := policyInput()
	rules := []domain.PolicyRecord{
		addOnRule("CH01", "ALL", "01", "value * 0.05"),
		addOnRule("CH02", "ALL", "02", "value * 0.07"),
	}
	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return(rules, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.Equal("CH01", lines[0].TaxCode)
}

func (suite *PolicyEngineServiceTestSuite) TestEUGroupMatchesBothDirections() {
	ctx := context.Background()
	rules := []domain.PolicyRecord{addOnRule("EUADD", "EU", "*", "value * 0.1")}
	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return(rules, nil)

	input := policyInput()
	input.CountryOfOrigin = "DE"
	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)

	input.CountryOfOrigin = "EU"
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)

	input.CountryOfOrigin = "US"
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestConditionalRuleSuppressesReciprocalBaseline() {
	ctx := context.Background()
	input := policyInput()

	conditional := domain.PolicyRecord{
		PolicyID:    "pol-cond",
		TaxCode:     "S232",
		Name:        "Derivative articles",
		HTSCode:     "*",
		CountryCode: "ALL",
		Type:        domain.PolicyConditional,
		Formula:     "value * 0.25",
		Active:      true,
		Conditions: domain.PolicyConditions{
			ExcludesReciprocalBaseline: true,
		},
	}
	reciprocal := addOnRule("RECIP_BASE", "ALL", "*", "value * 0.1")

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).
		Return([]domain.PolicyRecord{reciprocal, conditional}, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	// The conditional gates the baseline away and never charges itself, even
	// though it carries a formula.
	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestConditionalRuleWithFormulaNeverCharges() {
	ctx := context.Background()
	input := policyInput()

	conditional := domain.PolicyRecord{
		PolicyID:    "pol-cond-charge",
		TaxCode:     "COND",
		Name:        "Gating rule",
		HTSCode:     "*",
		CountryCode: "ALL",
		Type:        domain.PolicyConditional,
		Formula:     "value * 0.25",
		Active:      true,
	}

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).
		Return([]domain.PolicyRecord{conditional}, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestSuppressionSparesCountryScopedReciprocalRule() {
	ctx := context.Background()
	input := policyInput()

	conditional := domain.PolicyRecord{
		PolicyID:    "pol-cond",
		TaxCode:     "S232",
		HTSCode:     "*",
		CountryCode: "ALL",
		Type:        domain.PolicyConditional,
		Active:      true,
		Conditions: domain.PolicyConditions{
			ExcludesReciprocalBaseline: true,
		},
	}
	baseline := addOnRule("RECIP_BASE", "ALL", "*", "value * 0.1")
	countryScoped := addOnRule("RECIP_CN_EXTRA", input.CountryOfOrigin, "*", "value * 0.05")

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).
		Return([]domain.PolicyRecord{conditional, baseline, countryScoped}, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	// Only the wildcard-scoped row is a baseline; the country-pinned
	// reciprocal rule survives the exclusion.
	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.Equal("RECIP_CN_EXTRA", lines[0].TaxCode)
}

func (suite *PolicyEngineServiceTestSuite) TestMarkerOnlyRuleProducesNoCharge() {
	ctx := context.Background()
	input := policyInput()
	marker := domain.PolicyRecord{
		PolicyID:    "pol-marker",
		TaxCode:     "EXCL",
		HTSCode:     "*",
		CountryCode: "ALL",
		Type:        domain.PolicyConditional,
		Active:      true,
		Conditions: domain.PolicyConditions{
			MarkerOnly:                 true,
			ExcludesReciprocalBaseline: true,
		},
	}
	reciprocal := addOnRule("RECIP_BASE", "ALL", "*", "value * 0.1")

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).
		Return([]domain.PolicyRecord{marker, reciprocal}, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestValueConditions() {
	ctx := context.Background()
	min := decimal.NewFromInt(800)
	rule := addOnRule("DEMIN", "ALL", "*", "value * 0.1")
	rule.Conditions.MinValue = &min

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return([]domain.PolicyRecord{rule}, nil)

	input := policyInput()
	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)

	input.DeclaredValue = decimal.NewFromInt(500)
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Empty(lines)
}

func (suite *PolicyEngineServiceTestSuite) TestRequiredFlagFromAdditionalInputs() {
	ctx := context.Background()
	rule := addOnRule("FLAGGED", "ALL", "*", "value * 0.02")
	rule.Conditions.RequiredFlags = []string{"containsSteel"}

	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return([]domain.PolicyRecord{rule}, nil)

	input := policyInput()
	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Empty(lines)

	input.AdditionalInputs = map[string]bool{"containsSteel": true}
	lines, err = suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))
	suite.Require().NoError(err)
	suite.Len(lines, 1)
}

func (suite *PolicyEngineServiceTestSuite) TestBrokenFormulaIsSkipped() {
	ctx := context.Background()
	input := policyInput()
	rules := []domain.PolicyRecord{
		addOnRule("BROKEN", "ALL", "*", "value *"),
		addOnRule("OK", "ALL", "*", "value * 0.1"),
	}
	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return(rules, nil).Once()

	lines, err := suite.service.EvaluateAdditionalTariffs(ctx, input, policyVars(input.DeclaredValue))

	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.Equal("OK", lines[0].TaxCode)
}

func (suite *PolicyEngineServiceTestSuite) TestPostCalculationClamping() {
	ctx := context.Background()
	min := decimal.NewFromInt(25)
	max := decimal.NewFromInt(500)
	rule := domain.PolicyRecord{
		PolicyID:      "pol-mpf",
		TaxCode:       "MPF",
		Name:          "Processing fee",
		HTSCode:       "*",
		CountryCode:   "ALL",
		Type:          domain.PolicyPostCalculation,
		Formula:       "value * 0.003464",
		MinimumAmount: &min,
		MaximumAmount: &max,
		Active:        true,
	}
	suite.mockRepo.On("FindActiveByTypes", ctx, mock.Anything).Return([]domain.PolicyRecord{rule}, nil)

	input := policyInput()

	// Below the floor: clamped up.
	vars := policyVars(decimal.NewFromInt(1000))
	vars["duty"] = decimal.Zero
	vars["total"] = decimal.NewFromInt(1000)
	lines, err := suite.service.EvaluatePostCalculationTaxes(ctx, input, vars)
	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.True(lines[0].Amount.Equal(min))

	// Above the ceiling: clamped down.
	input.DeclaredValue = decimal.NewFromInt(1000000)
	vars = policyVars(input.DeclaredValue)
	vars["duty"] = decimal.Zero
	vars["total"] = input.DeclaredValue
	lines, err = suite.service.EvaluatePostCalculationTaxes(ctx, input, vars)
	suite.Require().NoError(err)
	suite.Require().Len(lines, 1)
	suite.True(lines[0].Amount.Equal(max))
}

func (suite *PolicyEngineServiceTestSuite) TestDeactivateUnknownPolicyIsNotFound() {
	ctx := context.Background()
	suite.mockRepo.On("FindPolicyByID", ctx, "missing").
		Return(nil, apperrors.NewNotFoundError("no policy")).Once()

	err := suite.service.DeactivatePolicy(ctx, "missing", "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestPolicyEngineServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PolicyEngineServiceTestSuite))
}
