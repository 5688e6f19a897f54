package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemBreakdown is the per-item calculation result. Derived once during
// aggregation and never mutated afterwards.
type ItemBreakdown struct {
	ItemID           string          `json:"item_id"`
	ResolvedWeightKg float64         `json:"resolved_weight_kg"`
	ResolvedCategory string          `json:"resolved_category"`
	ValuationBasis   ValuationBasis  `json:"valuation_basis"`
	TaxableValue     decimal.Decimal `json:"taxable_value"`
	CustomsRate      decimal.Decimal `json:"customs_rate"`
	CustomsAmount    decimal.Decimal `json:"customs_amount"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	LandedCost       decimal.Decimal `json:"landed_cost"`
}

// QuoteBreakdown is the itemized quote total.
// Invariant: GrandTotal equals the sum of every other component, to the cent,
// in the target currency.
type QuoteBreakdown struct {
	ItemsSubtotal       decimal.Decimal `json:"items_subtotal"`
	Shipping            decimal.Decimal `json:"shipping"`
	CustomsTotal        decimal.Decimal `json:"customs_total"`
	DestinationTaxTotal decimal.Decimal `json:"destination_tax_total"`
	Handling            decimal.Decimal `json:"handling"`
	Insurance           decimal.Decimal `json:"insurance"`
	GatewayFee          decimal.Decimal `json:"gateway_fee"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	Currency            string          `json:"currency"`
}

// ConfidenceEnvelope describes how much of a calculation relied on live data
// versus cached or fallback data. Score is in [0,1] and decreases
// monotonically with every fallback or timeout encountered.
type ConfidenceEnvelope struct {
	APICallsMade  int     `json:"api_calls_made"`
	CacheHits     int     `json:"cache_hits"`
	FallbacksUsed int     `json:"fallbacks_used"`
	ErrorsHandled int     `json:"errors_handled"`
	Score         float64 `json:"score"`
}

// AuditTrail records the rate captures a quote was computed from, for
// reproducibility.
type AuditTrail struct {
	CalculatedAt  time.Time            `json:"calculated_at"`
	ExchangeRate  decimal.Decimal      `json:"exchange_rate"`
	SnapshotsUsed map[string]uuid.UUID `json:"snapshots_used,omitempty"` // rate key -> snapshot ID
}

// QuoteCalculationResult is the immutable output of one calculation.
// Success is false only on structural validation failure or when no currency
// conversion path exists at all; a quote computed entirely from fallback
// values is still Success=true with a reduced confidence score.
type QuoteCalculationResult struct {
	ID         uuid.UUID          `json:"id"`
	Success    bool               `json:"success"`
	Breakdown  *QuoteBreakdown    `json:"breakdown,omitempty"`
	Items      []ItemBreakdown    `json:"items,omitempty"`
	Confidence ConfidenceEnvelope `json:"confidence"`
	Audit      AuditTrail         `json:"audit"`
	Error      string             `json:"error,omitempty"`
	Validation *ValidationResult  `json:"validation,omitempty"`
}
