package currency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/platform"
)

// RemoteSource fetches live exchange rates from an exchangerate-style HTTP
// API. This is the only code that knows the raw response shape.
type RemoteSource struct {
	client  *platform.HTTPClient
	baseURL string
}

func NewRemoteSource(client *platform.HTTPClient, baseURL string) *RemoteSource {
	return &RemoteSource{client: client, baseURL: baseURL}
}

type ratesPayload struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (s *RemoteSource) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var payload ratesPayload
	url := fmt.Sprintf("%s/latest?base=%s&symbols=%s", s.baseURL, from, to)
	if err := s.client.GetJSON(ctx, url, &payload); err != nil {
		return decimal.Zero, err
	}

	rate, ok := payload.Rates[to]
	if !ok || rate <= 0 {
		return decimal.Zero, fmt.Errorf("rate source returned no usable rate for %s/%s", from, to)
	}
	return decimal.NewFromFloat(rate), nil
}
