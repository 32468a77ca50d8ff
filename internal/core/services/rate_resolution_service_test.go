package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock TariffEntryRepository ---
type MockTariffRepository struct {
	mock.Mock
}

func (m *MockTariffRepository) FindBestEntry(ctx context.Context, code, version string) (*domain.TariffCodeEntry, error) {
	args := m.Called(ctx, code, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TariffCodeEntry), args.Error(1)
}

func (m *MockTariffRepository) FindHistoricalSnapshot(ctx context.Context, code8 string, entryDate time.Time, year int) (*domain.HistoricalRateSnapshot, error) {
	args := m.Called(ctx, code8, entryDate, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HistoricalRateSnapshot), args.Error(1)
}

func (m *MockTariffRepository) FindManualOverride(ctx context.Context, code, countryCode string, formulaType domain.FormulaType, version string) (*domain.ManualFormulaOverride, error) {
	args := m.Called(ctx, code, countryCode, formulaType, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ManualFormulaOverride), args.Error(1)
}

func (m *MockTariffRepository) SaveEntry(ctx context.Context, entry domain.TariffCodeEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTariffRepository) SaveManualOverride(ctx context.Context, override domain.ManualFormulaOverride) error {
	args := m.Called(ctx, override)
	return args.Error(0)
}

// --- Mock PatternFormulaGenerator ---
type MockPatternGenerator struct {
	mock.Mock
}

func (m *MockPatternGenerator) GenerateFromText(ctx context.Context, rateText, unitHint string) (*portssvc.GeneratedFormula, error) {
	args := m.Called(ctx, rateText, unitHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.GeneratedFormula), args.Error(1)
}

// --- Mock NoteResolver ---
type MockNoteResolver struct {
	mock.Mock
}

func (m *MockNoteResolver) ResolveNoteReference(ctx context.Context, code, rateText, column string, year int) (*portssvc.NoteResolution, error) {
	args := m.Called(ctx, code, rateText, column, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.NoteResolution), args.Error(1)
}

// --- Test Suite ---
type RateResolutionServiceTestSuite struct {
	suite.Suite
	mockRepo     *MockTariffRepository
	mockPatterns *MockPatternGenerator
	mockNotes    *MockNoteResolver
	service      *services.RateResolutionService
}

func (suite *RateResolutionServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockTariffRepository)
	suite.mockPatterns = new(MockPatternGenerator)
	suite.mockNotes = new(MockNoteResolver)
	suite.service = services.NewRateResolutionService(
		suite.mockRepo,
		suite.mockPatterns,
		suite.mockNotes,
		services.DefaultResolutionConfig(),
		nil,
	)
}

func baseEntry() *domain.TariffCodeEntry {
	return &domain.TariffCodeEntry{
		Code:    "0101210000",
		Chapter: "01",
	}
}

func baseInput() domain.CalculationInput {
	return domain.CalculationInput{
		Code:            "0101.21.0000",
		CountryOfOrigin: "JP",
		DeclaredValue:   decimal.NewFromInt(1000),
		EntryDate:       time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *RateResolutionServiceTestSuite) TestManualOverrideWins() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	input := baseInput()

	override := &domain.ManualFormulaOverride{
		Code:        "0101210000",
		CountryCode: "JP",
		FormulaType: domain.FormulaGeneral,
		Formula:     "value * 0.03",
	}
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(override, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.03", res.Formula)
	suite.Equal(domain.SourceManualOverride, res.Source)
	suite.Equal(domain.ConfidenceManual, res.Confidence)
	suite.Equal([]string{"value"}, res.Variables)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RateResolutionServiceTestSuite) TestOverrideSuppressFlagCarried() {
	ctx := context.Background()
	entry := baseEntry()
	input := baseInput()

	override := &domain.ManualFormulaOverride{
		Formula:              "value * 0.05",
		SuppressExtraCharges: true,
	}
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(override, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.True(res.SuppressExtraCharges)
}

func (suite *RateResolutionServiceTestSuite) TestGeneralColumnWhenNoOverride() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.1", res.Formula)
	suite.Equal(domain.SourceGeneralRate, res.Source)
	suite.Equal(domain.ConfidenceStandard, res.Confidence)
	suite.Equal(domain.FormulaGeneral, res.FormulaType)
}

func (suite *RateResolutionServiceTestSuite) TestOtherColumnForNonPreferentialOrigin() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	entry.OtherFormula = "value * 0.35"
	entry.OtherRateCountries = []string{"KP"}
	input := baseInput()
	input.CountryOfOrigin = "KP"

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "KP", domain.FormulaOther, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "KP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.35", res.Formula)
	suite.Equal(domain.SourceOtherRate, res.Source)
	suite.Equal(domain.ConfidenceSynthesis, res.Confidence)
}

func (suite *RateResolutionServiceTestSuite) TestSpecialDetailForEligibleProgram() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	entry.Metadata.ProgramSignals = []string{"A"}
	entry.SpecialDetail = &domain.SpecialProgramDetail{
		Formula:           "0",
		Headings:          []string{"9902.01.01"},
		EligibleCountries: []string{"JP"},
	}
	input := baseInput()
	input.SelectedHeadings = []string{"99020101"}

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaSpecial, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("0", res.Formula)
	suite.Equal(domain.SourceSpecialDetail, res.Source)
	suite.Equal(domain.ConfidenceSynthesis, res.Confidence)
	suite.Equal(domain.FormulaSpecial, res.FormulaType)
}

func (suite *RateResolutionServiceTestSuite) TestReciprocalBaselineBlocksSpecialProgram() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	entry.Metadata.ProgramSignals = []string{"A"}
	entry.Metadata.ReciprocalOnlyBaseline = true
	entry.SpecialDetail = &domain.SpecialProgramDetail{
		Formula:  "0",
		Headings: []string{"9902.01.01"},
	}
	input := baseInput()
	input.SelectedHeadings = []string{"9902.01.01"}

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal(domain.SourceGeneralRate, res.Source)
}

func (suite *RateResolutionServiceTestSuite) TestPatternInferenceFromGeneralText() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralRateText = "5%"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockPatterns.On("GenerateFromText", ctx, "5%", "").
		Return(&portssvc.GeneratedFormula{Formula: "value * 0.05", Variables: []string{"value"}, Confidence: 0.9}, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.05", res.Formula)
	suite.Equal(domain.SourcePatternGeneral, res.Source)
	suite.Equal(domain.ConfidencePatternGeneral, res.Confidence)
	suite.mockPatterns.AssertExpectations(suite.T())
}

func (suite *RateResolutionServiceTestSuite) TestLegalReferenceTextSkipsPatternInference() {
	ctx := context.Background()
	entry := baseEntry()
	entry.Code = "0101210000"
	entry.GeneralRateText = "See note 4 to this chapter"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockNotes.On("ResolveNoteReference", ctx, "0101210000", "See note 4 to this chapter", "general", 2026).
		Return(&portssvc.NoteResolution{Formula: "value * 0.025", Confidence: 0.8}, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.025", res.Formula)
	suite.Equal(domain.SourceKnowledgeBase, res.Source)
	suite.Equal(0.8, res.Confidence)
	suite.mockPatterns.AssertNotCalled(suite.T(), "GenerateFromText", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RateResolutionServiceTestSuite) TestKnowledgeBaseConfidenceFloor() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralRateText = "See note 4 to this chapter"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockNotes.On("ResolveNoteReference", ctx, "0101210000", "See note 4 to this chapter", "general", 2026).
		Return(&portssvc.NoteResolution{Formula: "value * 0.025", Confidence: 0.2}, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal(domain.ConfidenceKnowledgeBaseMin, res.Confidence)
}

func (suite *RateResolutionServiceTestSuite) TestInferredBaseRoundTrip() {
	ctx := context.Background()
	rate := decimal.NewFromFloat(0.02)
	entry := baseEntry()
	entry.AdjustedFormula = "(value * 0.05) + (value * 0.02)"
	entry.Metadata.SynthesisAdjustmentRate = &rate
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.05", res.Formula)
	suite.Equal(domain.SourceInferredBase, res.Source)
	suite.Equal(domain.ConfidenceInferredBase, res.Confidence)
}

func (suite *RateResolutionServiceTestSuite) TestInferredBaseRateMismatchFallsThrough() {
	ctx := context.Background()
	rate := decimal.NewFromFloat(0.07)
	entry := baseEntry()
	entry.AdjustedFormula = "(value * 0.05) + (value * 0.02)"
	entry.Metadata.SynthesisAdjustmentRate = &rate
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "01012100", input.EntryDate, 2026).
		Return(nil, apperrors.NewNotFoundError("no snapshot")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().Error(err)
	suite.Nil(res)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *RateResolutionServiceTestSuite) TestHistoricalSnapshotReconstruction() {
	ctx := context.Background()
	entry := baseEntry()
	input := baseInput()

	snapshot := &domain.HistoricalRateSnapshot{
		Code8:         "01012100",
		AdValoremRate: decimal.NewFromInt(5),
		Specific:      domain.SnapshotComponent{Rate: decimal.NewFromFloat(0.022), Unit: domain.UnitKilogram},
	}
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "01012100", input.EntryDate, 2026).
		Return(snapshot, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("value * 0.05 + weight * 0.022", res.Formula)
	suite.Equal(domain.SourceHistoricalRebuilt, res.Source)
	suite.Equal(domain.ConfidenceHistoricalRebuilt, res.Confidence)
}

func (suite *RateResolutionServiceTestSuite) TestHistoricalSnapshotRawTextParsed() {
	ctx := context.Background()
	entry := baseEntry()
	input := baseInput()

	snapshot := &domain.HistoricalRateSnapshot{
		Code8:       "01012100",
		RawRateText: "2.2¢/kg",
	}
	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "01012100", input.EntryDate, 2026).
		Return(snapshot, nil).Once()
	suite.mockPatterns.On("GenerateFromText", ctx, "2.2¢/kg", "").
		Return(&portssvc.GeneratedFormula{Formula: "weight * 0.022", Variables: []string{"weight"}, Confidence: 0.9}, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal("weight * 0.022", res.Formula)
	suite.Equal(domain.SourceHistoricalParsed, res.Source)
	suite.Equal(domain.ConfidenceHistoricalParsed, res.Confidence)
}

func (suite *RateResolutionServiceTestSuite) TestSpecialChapterUsesHistoricalBeforeColumns() {
	ctx := context.Background()
	entry := baseEntry()
	entry.Code = "9903880100"
	entry.Chapter = "99"
	entry.GeneralFormula = "value * 0.25"
	input := baseInput()
	input.Code = "9903.88.0100"
	input.EntryDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	snapshot := &domain.HistoricalRateSnapshot{
		Code8:         "99038801",
		AdValoremRate: decimal.NewFromInt(10),
	}
	suite.mockRepo.On("FindManualOverride", ctx, "9903880100", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "99038801", input.EntryDate, 2024).
		Return(snapshot, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal(domain.SourceHistoricalRebuilt, res.Source)
	suite.Equal("value * 0.1", res.Formula)
}

func (suite *RateResolutionServiceTestSuite) TestSpecialChapterAfterCutoffUsesColumns() {
	ctx := context.Background()
	entry := baseEntry()
	entry.Code = "9903880100"
	entry.Chapter = "99"
	entry.GeneralFormula = "value * 0.25"
	input := baseInput()
	input.Code = "9903.88.0100"

	suite.mockRepo.On("FindManualOverride", ctx, "9903880100", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal(domain.SourceGeneralRate, res.Source)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindHistoricalSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RateResolutionServiceTestSuite) TestExternalLookupFailureFallsThrough() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralRateText = "See note 4"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockNotes.On("ResolveNoteReference", ctx, "0101210000", "See note 4", "general", 2026).
		Return(nil, apperrors.NewExternalLookupError("knowledge base unreachable", nil)).Once()

	snapshot := &domain.HistoricalRateSnapshot{
		Code8:         "01012100",
		AdValoremRate: decimal.NewFromInt(3),
	}
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "01012100", input.EntryDate, 2026).
		Return(snapshot, nil).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().NoError(err)
	suite.Equal(domain.SourceHistoricalRebuilt, res.Source)
}

func (suite *RateResolutionServiceTestSuite) TestAllSourcesExhaustedIsNotFound() {
	ctx := context.Background()
	entry := baseEntry()
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Once()
	suite.mockRepo.On("FindHistoricalSnapshot", ctx, "01012100", input.EntryDate, 2026).
		Return(nil, apperrors.NewNotFoundError("no snapshot")).Once()

	res, err := suite.service.ResolveFormula(ctx, entry, input)

	suite.Require().Error(err)
	suite.Nil(res)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *RateResolutionServiceTestSuite) TestResolutionIsIdempotent() {
	ctx := context.Background()
	entry := baseEntry()
	entry.GeneralFormula = "value * 0.1"
	input := baseInput()

	suite.mockRepo.On("FindManualOverride", ctx, "0101210000", "JP", domain.FormulaGeneral, "").
		Return(nil, apperrors.NewNotFoundError("no override")).Twice()

	first, err := suite.service.ResolveFormula(ctx, entry, input)
	suite.Require().NoError(err)
	second, err := suite.service.ResolveFormula(ctx, entry, input)
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func TestRateResolutionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RateResolutionServiceTestSuite))
}
