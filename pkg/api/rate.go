package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource records where a resolved value came from.
type RateSource string

const (
	SourceLive     RateSource = "live"
	SourceCache    RateSource = "cache"
	SourceFallback RateSource = "fallback"
	SourceExact    RateSource = "exact" // identity conversion, no lookup
)

// ValuationBasis indicates which taxable value a provider applied.
type ValuationBasis string

const (
	// BasisDeclared taxes the declared invoice price.
	BasisDeclared ValuationBasis = "declared"
	// BasisMinimumFloor taxes the jurisdiction's minimum valuation because
	// the declared price fell below it.
	BasisMinimumFloor ValuationBasis = "minimum_floor"
	// BasisActualInvoiceRequired signals the declared price must be used
	// regardless of any floor.
	BasisActualInvoiceRequired ValuationBasis = "actual_invoice_required"
)

// MinimumValuation is a jurisdiction-mandated floor on taxable value for a
// product category.
type MinimumValuation struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// RateResult is the normalized output of every jurisdiction rate provider.
// Providers never fail for "rate unknown": they return Source=fallback with
// reduced confidence instead, which is what lets the orchestrator aggregate
// heterogeneous providers without per-provider error handling.
type RateResult struct {
	Rate             decimal.Decimal   `json:"rate"`
	CustomsRate      decimal.Decimal   `json:"customs_rate"`
	Basis            ValuationBasis    `json:"basis,omitempty"`
	MinimumValuation *MinimumValuation `json:"minimum_valuation,omitempty"`
	Confidence       float64           `json:"confidence"`
	Source           RateSource        `json:"source"`
	LastUpdated      time.Time         `json:"last_updated"`
}

// ConversionResult is the output of a currency conversion.
type ConversionResult struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Source RateSource      `json:"source"`
}

// WeightResult is the output of weight resolution for one item.
type WeightResult struct {
	WeightKg   float64    `json:"weight_kg"`
	Confidence float64    `json:"confidence"`
	Source     RateSource `json:"source"`
}
