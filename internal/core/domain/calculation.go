package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate source provenance tags, one per resolution step.
const (
	SourceManualOverride       = "manual_override"
	SourceSpecialDetail        = "special_program_detail"
	SourceOtherRate            = "other_rate"
	SourceAdjusted             = "adjusted_rate"
	SourceGeneralRate          = "general_rate"
	SourcePatternGeneral       = "pattern_general"
	SourcePatternLegacy        = "pattern_legacy_general"
	SourcePatternStaged        = "pattern_staged_general"
	SourceInferredBase         = "inferred_base"
	SourceKnowledgeBase        = "knowledge_base"
	SourceHistoricalRebuilt    = "historical_reconstructed"
	SourceHistoricalParsed     = "historical_parsed"
	SourceTradeAgreementPrefix = "trade-agreement-"
)

// Fixed per-source confidence constants. These are calibration values carried
// over from the rate data provider, not derived quantities.
const (
	ConfidenceManual            = 1.0
	ConfidenceSynthesis         = 0.95
	ConfidenceStandard          = 0.9
	ConfidencePatternGeneral    = 0.82
	ConfidencePatternLegacy     = 0.80
	ConfidencePatternStaged     = 0.78
	ConfidenceInferredBase      = 0.75
	ConfidenceKnowledgeBaseMin  = 0.6
	ConfidenceHistoricalRebuilt = 0.98
	ConfidenceHistoricalParsed  = 0.92
)

// FormulaResolution is the outcome of the formula source selector: one formula
// with its provenance, confidence and the column it came from.
type FormulaResolution struct {
	Formula     string      `json:"formula"`
	Source      string      `json:"source"`
	Confidence  float64     `json:"confidence"`
	FormulaType FormulaType `json:"formulaType"`
	Variables   []string    `json:"variables,omitempty"`
	// SuppressExtraCharges is carried through from a manual override.
	SuppressExtraCharges bool `json:"suppressExtraCharges,omitempty"`
}

// CalculationInput is the request-scoped shipment context the engine works on.
type CalculationInput struct {
	Code                      string
	CountryOfOrigin           string
	DeclaredValue             decimal.Decimal
	EntryDate                 time.Time
	WeightKg                  decimal.Decimal
	Quantity                  decimal.Decimal
	QuantityUnit              string
	TransportMode             string
	SelectedHeadings          []string
	TradeAgreementCode        string
	TradeAgreementCertificate bool
	AdditionalInputs          map[string]bool
	Version                   string
}

// ChargeLine is one additional tariff or tax in a calculation breakdown.
type ChargeLine struct {
	PolicyID string          `json:"policyID"`
	TaxCode  string          `json:"taxCode"`
	Name     string          `json:"name"`
	Formula  string          `json:"formula"`
	Amount   decimal.Decimal `json:"amount"`
}

// CalculationRecord is the immutable audit row written once per calculation.
type CalculationRecord struct {
	CalculationID   string          `json:"calculationID"`
	Code            string          `json:"code"`
	CountryOfOrigin string          `json:"countryOfOrigin"`
	DeclaredValue   decimal.Decimal `json:"declaredValue"`
	WeightKg        decimal.Decimal `json:"weightKg"`
	Quantity        decimal.Decimal `json:"quantity"`
	EntryDate       time.Time       `json:"entryDate"`

	BaseDuty          decimal.Decimal `json:"baseDuty"`
	AdditionalTariffs []ChargeLine    `json:"additionalTariffs"`
	Taxes             []ChargeLine    `json:"taxes"`
	TotalDuty         decimal.Decimal `json:"totalDuty"`
	TotalTax          decimal.Decimal `json:"totalTax"`
	LandedCost        decimal.Decimal `json:"landedCost"`

	FormulaUsed    string              `json:"formulaUsed"`
	RateSource     string              `json:"rateSource"`
	Confidence     float64             `json:"confidence"`
	TradeAgreement *TradeAgreementInfo `json:"tradeAgreement,omitempty"`
	EngineVersion  string              `json:"engineVersion"`
	AuditFields
}
