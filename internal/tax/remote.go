package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
	"landed-cost/pkg/platform"
)

// remoteRate is the normalized form a remote rate source resolves to.
// Only this adapter knows the raw wire shape, isolating drift in any one
// external source.
type remoteRate struct {
	TaxRate     decimal.Decimal
	CustomsRate decimal.Decimal
	Floor       *api.MinimumValuation
	Basis       api.ValuationBasis
	Confidence  float64
	LastUpdated time.Time
}

// RemoteRates fetches live jurisdiction rates from an HTTP rate source.
type RemoteRates struct {
	client  *platform.HTTPClient
	baseURL string
}

func NewRemoteRates(client *platform.HTTPClient, baseURL string) *RemoteRates {
	return &RemoteRates{client: client, baseURL: baseURL}
}

// ratePayload is the raw provider response shape.
type ratePayload struct {
	Rate             float64 `json:"rate"`
	CustomsRate      float64 `json:"customs_rate"`
	Basis            string  `json:"basis,omitempty"`
	MinimumValuation *struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"minimum_valuation,omitempty"`
	Confidence  float64 `json:"confidence"`
	LastUpdated string  `json:"last_updated"`
}

// Fetch retrieves and normalizes the rate for one jurisdiction/class pair.
func (r *RemoteRates) Fetch(ctx context.Context, jurisdiction, itemClass string) (remoteRate, error) {
	var payload ratePayload
	url := fmt.Sprintf("%s/rates/%s/%s", r.baseURL, jurisdiction, itemClass)
	if err := r.client.GetJSON(ctx, url, &payload); err != nil {
		return remoteRate{}, err
	}
	if payload.Rate < 0 || payload.Rate > 1 {
		return remoteRate{}, fmt.Errorf("rate source returned out-of-range rate %f for %s/%s", payload.Rate, jurisdiction, itemClass)
	}

	normalized := remoteRate{
		TaxRate:     decimal.NewFromFloat(payload.Rate),
		CustomsRate: decimal.NewFromFloat(payload.CustomsRate),
		Confidence:  payload.Confidence,
	}
	if normalized.Confidence == 0 {
		normalized.Confidence = 1.0
	}
	if payload.Basis == string(api.BasisActualInvoiceRequired) {
		normalized.Basis = api.BasisActualInvoiceRequired
	}
	if payload.MinimumValuation != nil {
		normalized.Floor = &api.MinimumValuation{
			Amount:   decimal.NewFromFloat(payload.MinimumValuation.Amount),
			Currency: payload.MinimumValuation.Currency,
		}
	}
	if ts, err := time.Parse(time.RFC3339, payload.LastUpdated); err == nil {
		normalized.LastUpdated = ts
	} else {
		normalized.LastUpdated = time.Now()
	}
	return normalized, nil
}
