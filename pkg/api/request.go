// Package api defines the shared contracts for the quote calculation engine.
package api

import "github.com/shopspring/decimal"

// ItemInput is a single purchase item in a calculation request.
type ItemInput struct {
	ID        string          `json:"id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	// WeightKg is optional; when nil the engine estimates it from the category.
	WeightKg *float64 `json:"weight_kg,omitempty"`
	// Category is an optional classification code (HSN-style) used for
	// customs and tax rate lookups.
	Category string `json:"category,omitempty"`
}

// CalculationRequest is the input to a quote calculation.
// It is immutable once submitted: the engine never mutates it and discards it
// after producing a QuoteCalculationResult.
type CalculationRequest struct {
	OriginCountry      string      `json:"origin_country"`
	DestinationCountry string      `json:"destination_country"`
	TargetCurrency     string      `json:"target_currency"`
	Items              []ItemInput `json:"items"`
	// IncludeInsurance opts the order into insurance. When false the engine
	// falls back to the configured insurance default.
	IncludeInsurance bool `json:"include_insurance,omitempty"`
}

// BatchRequest pairs a caller-assigned ID with a calculation request for
// bulk re-pricing jobs.
type BatchRequest struct {
	ID      string             `json:"id"`
	Request CalculationRequest `json:"request"`
}

// ValidationError describes a single structural problem with a request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the output of pre-flight request validation.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors,omitempty"`
}
