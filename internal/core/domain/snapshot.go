package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit-of-quantity codes carried on snapshot rate components. The code decides
// which shipment variable a specific-rate component multiplies.
const (
	UnitKilogram = "KG"
	UnitNumber   = "NO"
)

// SnapshotComponent is one numeric rate component of a historical snapshot.
// Rate is an ad valorem percentage when Unit is empty, otherwise an amount per
// unit of quantity.
type SnapshotComponent struct {
	Rate decimal.Decimal `json:"rate"`
	Unit string          `json:"unit"`
}

// HistoricalRateSnapshot is a point-in-time rate capture for an 8-digit code,
// keyed by (code, effective-date range, source year). Up to three components
// may be non-zero: ad valorem, specific, other.
type HistoricalRateSnapshot struct {
	SnapshotID    string            `json:"snapshotID"`
	Code8         string            `json:"code8"`
	EffectiveFrom time.Time         `json:"effectiveFrom"`
	EffectiveTo   *time.Time        `json:"effectiveTo,omitempty"`
	SourceYear    int               `json:"sourceYear"`
	AdValoremRate decimal.Decimal   `json:"adValoremRate"` // percent of declared value
	Specific      SnapshotComponent `json:"specific"`
	Other         SnapshotComponent `json:"other"`
	// RawRateText is the published text, kept for pattern parsing when no
	// numeric components were captured.
	RawRateText string `json:"rawRateText"`
	AuditFields
}

// HasNumericComponents reports whether any of the three rate components is
// non-zero, i.e. whether a formula can be reconstructed without text parsing.
func (s *HistoricalRateSnapshot) HasNumericComponents() bool {
	return !s.AdValoremRate.IsZero() || !s.Specific.Rate.IsZero() || !s.Other.Rate.IsZero()
}
