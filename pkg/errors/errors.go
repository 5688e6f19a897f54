// Package errors provides severity-aware error types for the quote engine.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// QuoteError is a structured error with calculation context.
type QuoteError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	ItemID      string   `json:"item_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *QuoteError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("[%s] %s: %s (item: %s)", e.Severity, e.Code, e.Message, e.ItemID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeProviderTimeout     = "PROVIDER_TIMEOUT"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeRateNotFound        = "RATE_NOT_FOUND"
	ErrCodeNoConversionPath    = "NO_CONVERSION_PATH"
	ErrCodeUnknownCountry      = "UNKNOWN_COUNTRY"
)

// NewProviderTimeoutError records a provider call that missed its deadline.
// These are absorbed at the adapter boundary, never surfaced to callers.
func NewProviderTimeoutError(provider, itemID string) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeProviderTimeout,
		Message:     fmt.Sprintf("provider %s missed its deadline", provider),
		Severity:    SeverityWarning,
		ItemID:      itemID,
		Recoverable: true,
	}
}

// NewNoConversionPathError is the one provider-side failure that can make a
// whole calculation fail: a quote in an undefined currency has no meaning.
func NewNoConversionPathError(from, to string) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeNoConversionPath,
		Message:     fmt.Sprintf("no exchange path from %s to %s, even via fallback table", from, to),
		Severity:    SeverityFatal,
		Recoverable: false,
	}
}

// NewRateNotFoundError records a rate lookup miss that was satisfied from a
// fallback table.
func NewRateNotFoundError(jurisdiction, itemClass string) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeRateNotFound,
		Message:     fmt.Sprintf("no rate for class %q in jurisdiction %s", itemClass, jurisdiction),
		Severity:    SeverityWarning,
		Recoverable: true,
	}
}
