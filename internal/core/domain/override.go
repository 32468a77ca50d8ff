package domain

// ManualFormulaOverride is the highest-priority formula source, keyed by
// (code, country, formula type, version).
type ManualFormulaOverride struct {
	OverrideID  string      `json:"overrideID"`
	Code        string      `json:"code"`
	CountryCode string      `json:"countryCode"`
	FormulaType FormulaType `json:"formulaType"`
	Version     string      `json:"version"`
	Formula     string      `json:"formula"`
	// SuppressExtraCharges skips both policy-engine passes for calculations
	// resolved through this override.
	SuppressExtraCharges bool `json:"suppressExtraCharges"`
	AuditFields
}
