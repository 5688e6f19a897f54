// Package validate performs pre-flight structural validation of calculation
// requests. Failure here short-circuits the engine before any cache or
// network work.
package validate

import (
	"fmt"

	"landed-cost/internal/currency"
	"landed-cost/pkg/api"
	"landed-cost/pkg/region"
)

// Request checks a calculation request for structural problems. It is
// side-effect free and collects every problem rather than stopping at the
// first one.
func Request(req api.CalculationRequest) api.ValidationResult {
	var errs []api.ValidationError

	if !region.IsKnown(req.OriginCountry) {
		errs = append(errs, api.ValidationError{
			Field:   "origin_country",
			Message: fmt.Sprintf("unrecognized country code %q", req.OriginCountry),
		})
	}
	if !region.IsKnown(req.DestinationCountry) {
		errs = append(errs, api.ValidationError{
			Field:   "destination_country",
			Message: fmt.Sprintf("unrecognized country code %q", req.DestinationCountry),
		})
	}
	if !currency.Supported(req.TargetCurrency) {
		errs = append(errs, api.ValidationError{
			Field:   "target_currency",
			Message: fmt.Sprintf("unsupported currency %q", req.TargetCurrency),
		})
	}

	if len(req.Items) == 0 {
		errs = append(errs, api.ValidationError{
			Field:   "items",
			Message: "at least one item is required",
		})
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			errs = append(errs, api.ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be positive",
			})
		}
		if !item.UnitPrice.IsPositive() {
			errs = append(errs, api.ValidationError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "unit price must be positive",
			})
		}
		if item.WeightKg != nil && *item.WeightKg <= 0 {
			errs = append(errs, api.ValidationError{
				Field:   fmt.Sprintf("items[%d].weight_kg", i),
				Message: "weight must be positive when provided",
			})
		}
	}

	return api.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
