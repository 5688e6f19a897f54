package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landed-cost/pkg/api"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func electronicsRequest(target string) api.CalculationRequest {
	return api.CalculationRequest{
		OriginCountry:      "US",
		DestinationCountry: "IN",
		TargetCurrency:     target,
		Items: []api.ItemInput{
			{ID: "item-1", UnitPrice: money("100"), Quantity: 1, Category: "electronics"},
		},
	}
}

// taxServer serves one live GST rate for every lookup.
func taxServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rate": 0.18, "customs_rate": 0.10, "confidence": 0.98, "last_updated": "2024-02-01T00:00:00Z"}`))
	}))
}

func TestElectronicsImportQuote(t *testing.T) {
	var hits int
	srv := taxServer(t, &hits)
	defer srv.Close()

	o := Build(Config{TaxRatesURL: srv.URL}, zerolog.Nop(), nil, nil)
	result := o.Calculate(context.Background(), electronicsRequest("USD"))

	require.True(t, result.Success)
	require.NotNil(t, result.Breakdown)

	b := result.Breakdown
	assert.True(t, b.ItemsSubtotal.Equal(money("100.00")), "subtotal %s", b.ItemsSubtotal)
	assert.True(t, b.CustomsTotal.Equal(money("10.00")), "customs %s", b.CustomsTotal)
	// Duty-inclusive base: (100 + 10) * 0.18.
	assert.True(t, b.DestinationTaxTotal.Equal(money("19.80")), "tax %s", b.DestinationTaxTotal)

	assert.Equal(t, 1.0, result.Confidence.Score)
	assert.GreaterOrEqual(t, result.Confidence.APICallsMade, 1)
	assert.Zero(t, result.Confidence.FallbacksUsed)

	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.True(t, item.CustomsAmount.Equal(money("10.00")))
	assert.True(t, item.TaxAmount.Equal(money("19.80")))
	assert.Equal(t, 0.8, item.ResolvedWeightKg, "category heuristic weight")
}

func TestGrandTotalIsSumOfComponents(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	for _, target := range []string{"USD", "INR", "EUR"} {
		result := o.Calculate(context.Background(), electronicsRequest(target))
		require.True(t, result.Success, target)

		b := result.Breakdown
		sum := b.ItemsSubtotal.
			Add(b.Shipping).
			Add(b.CustomsTotal).
			Add(b.DestinationTaxTotal).
			Add(b.Handling).
			Add(b.Insurance).
			Add(b.GatewayFee)
		assert.True(t, b.GrandTotal.Equal(sum), "%s: grand %s != sum %s", target, b.GrandTotal, sum)
		assert.Equal(t, target, b.Currency)
	}
}

func TestIdempotentForIdenticalInput(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)
	req := electronicsRequest("INR")

	first := o.Calculate(context.Background(), req)
	second := o.Calculate(context.Background(), req)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.ID, second.ID, "each calculation gets its own ID")
	assert.True(t, first.Breakdown.GrandTotal.Equal(second.Breakdown.GrandTotal))
	assert.Equal(t, first.Items, second.Items)
}

func TestUnregisteredJurisdictionStillQuotes(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	req := electronicsRequest("USD")
	req.DestinationCountry = "BR"
	result := o.Calculate(context.Background(), req)

	require.True(t, result.Success, "fallback rates, not an error")
	assert.GreaterOrEqual(t, result.Confidence.FallbacksUsed, 1)
	assert.Less(t, result.Confidence.Score, 1.0)
	assert.True(t, result.Breakdown.GrandTotal.IsPositive())
}

func TestConfidenceDecreasesWithFallbacks(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	clean := o.Calculate(context.Background(), electronicsRequest("USD"))

	degraded := electronicsRequest("USD")
	degraded.DestinationCountry = "BR"
	result := o.Calculate(context.Background(), degraded)

	assert.Less(t, result.Confidence.Score, clean.Confidence.Score)
}

func TestValuationFloorAppliedToCheapPhone(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	req := electronicsRequest("USD")
	req.Items = []api.ItemInput{
		{ID: "cheap-phone", UnitPrice: money("30"), Quantity: 1, Category: "phone"},
	}
	result := o.Calculate(context.Background(), req)

	require.True(t, result.Success)
	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, api.BasisMinimumFloor, item.ValuationBasis)
	assert.True(t, item.TaxableValue.Equal(money("50.00")), "floor taxes 50, not 30")
	// IN phone duty is 20% of the floored value.
	assert.True(t, item.CustomsAmount.Equal(money("10.00")))
	// Subtotal still charges what the customer actually pays.
	assert.True(t, result.Breakdown.ItemsSubtotal.Equal(money("30.00")))
}

func TestTaxBaseItemPriceExcludesDuty(t *testing.T) {
	o := Build(Config{TaxBase: TaxBaseItemPrice}, zerolog.Nop(), nil, nil)
	result := o.Calculate(context.Background(), electronicsRequest("USD"))

	require.True(t, result.Success)
	assert.True(t, result.Breakdown.DestinationTaxTotal.Equal(money("18.00")),
		"tax on item price alone: 100 * 0.18")
	assert.True(t, result.Breakdown.CustomsTotal.Equal(money("10.00")))
}

func TestValidationFailureShortCircuits(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	req := electronicsRequest("USD")
	req.Items = nil
	result := o.Calculate(context.Background(), req)

	assert.False(t, result.Success)
	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsValid)
	assert.Nil(t, result.Breakdown)

	stats := o.Stats()
	assert.Equal(t, int64(1), stats.FailedCalculations)
}

func TestInsuranceOptIn(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	without := o.Calculate(context.Background(), electronicsRequest("USD"))
	require.True(t, without.Breakdown.Insurance.IsZero())

	req := electronicsRequest("USD")
	req.IncludeInsurance = true
	with := o.Calculate(context.Background(), req)
	// IN insurance rate is 1% of the subtotal.
	assert.True(t, with.Breakdown.Insurance.Equal(money("1.00")))
	assert.True(t, with.Breakdown.GrandTotal.GreaterThan(without.Breakdown.GrandTotal))
}

func TestCacheEffectAcrossCalculations(t *testing.T) {
	var hits int
	srv := taxServer(t, &hits)
	defer srv.Close()

	o := Build(Config{TaxRatesURL: srv.URL}, zerolog.Nop(), nil, nil)
	req := electronicsRequest("USD")

	first := o.Calculate(context.Background(), req)
	require.True(t, first.Success)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, first.Confidence.APICallsMade)

	second := o.Calculate(context.Background(), req)
	require.True(t, second.Success)
	assert.Equal(t, 1, hits, "second calculation is served from the cache")
	assert.Zero(t, second.Confidence.APICallsMade)
	assert.GreaterOrEqual(t, second.Confidence.CacheHits, 1)

	o.ClearCache()
	third := o.Calculate(context.Background(), req)
	require.True(t, third.Success)
	assert.Equal(t, 2, hits, "cache clear forces the next lookup live")
	assert.Equal(t, 1, third.Confidence.APICallsMade)
}

func TestDeadlineDegradesToFallbackNotError(t *testing.T) {
	o := Build(Config{CalcTimeout: time.Nanosecond}, zerolog.Nop(), nil, nil)

	result := o.Calculate(context.Background(), electronicsRequest("USD"))

	require.True(t, result.Success, "deadline expiry degrades, never fails")
	assert.GreaterOrEqual(t, result.Confidence.ErrorsHandled, 1)
	assert.Less(t, result.Confidence.Score, 1.0)
	assert.True(t, result.Breakdown.GrandTotal.IsPositive())
}

func TestBatchPreservesOrderAndIsolation(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	bad := electronicsRequest("USD")
	bad.Items = nil
	reqs := []api.BatchRequest{
		{ID: "a", Request: electronicsRequest("USD")},
		{ID: "b", Request: bad},
		{ID: "c", Request: electronicsRequest("INR")},
	}

	results := o.CalculateBatch(context.Background(), reqs)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "c", results[2].ID)
	assert.True(t, results[0].Result.Success)
	assert.False(t, results[1].Result.Success, "one bad request never poisons its neighbors")
	assert.True(t, results[2].Result.Success)
}

func TestMultiItemQuoteSumsPerItemAmounts(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	kg := 1.2
	req := api.CalculationRequest{
		OriginCountry:      "US",
		DestinationCountry: "IN",
		TargetCurrency:     "USD",
		Items: []api.ItemInput{
			{ID: "laptop", UnitPrice: money("900"), Quantity: 1, Category: "laptop"},
			{ID: "sleeve", UnitPrice: money("25"), Quantity: 2, Category: "accessories", WeightKg: &kg},
		},
	}
	result := o.Calculate(context.Background(), req)
	require.True(t, result.Success)
	require.Len(t, result.Items, 2)

	customsSum := decimal.Zero
	taxSum := decimal.Zero
	for _, item := range result.Items {
		customsSum = customsSum.Add(item.CustomsAmount)
		taxSum = taxSum.Add(item.TaxAmount)
	}
	assert.True(t, result.Breakdown.CustomsTotal.Equal(customsSum))
	assert.True(t, result.Breakdown.DestinationTaxTotal.Equal(taxSum))
	assert.True(t, result.Breakdown.ItemsSubtotal.Equal(money("950.00")))
}

func TestStatsAccumulate(t *testing.T) {
	o := Build(Config{}, zerolog.Nop(), nil, nil)

	o.Calculate(context.Background(), electronicsRequest("USD"))
	o.Calculate(context.Background(), electronicsRequest("INR"))
	bad := electronicsRequest("USD")
	bad.TargetCurrency = "XYZ"
	o.Calculate(context.Background(), bad)

	stats := o.Stats()
	assert.Equal(t, int64(3), stats.TotalCalculations)
	assert.Equal(t, int64(2), stats.SuccessfulCalculations)
	assert.Equal(t, int64(1), stats.FailedCalculations)
	assert.GreaterOrEqual(t, stats.CacheHits, int64(1))
	assert.Greater(t, stats.AvgCalcMillis, 0.0)
}

type memoryRecorder struct {
	snaps []RateSnapshot
}

func (m *memoryRecorder) Record(ctx context.Context, snap RateSnapshot) (uuid.UUID, error) {
	m.snaps = append(m.snaps, snap)
	return snap.ID, nil
}

func TestAuditTrailRecordsSnapshots(t *testing.T) {
	rec := &memoryRecorder{}
	o := Build(Config{}, zerolog.Nop(), nil, rec)

	result := o.Calculate(context.Background(), electronicsRequest("INR"))
	require.True(t, result.Success)

	assert.Contains(t, result.Audit.SnapshotsUsed, "tax:IN:electronics")
	assert.Contains(t, result.Audit.SnapshotsUsed, "fx:USD:INR")
	assert.Len(t, rec.snaps, 2)
	assert.False(t, result.Audit.CalculatedAt.IsZero())
	assert.True(t, result.Audit.ExchangeRate.IsPositive())
}

func TestOriginSalesTaxOptIn(t *testing.T) {
	exempt := Build(Config{}, zerolog.Nop(), nil, nil)
	taxed := Build(Config{ApplyOriginTax: true}, zerolog.Nop(), nil, nil)

	req := electronicsRequest("USD")
	without := exempt.Calculate(context.Background(), req)
	with := taxed.Calculate(context.Background(), req)

	require.True(t, without.Success)
	require.True(t, with.Success)
	// US blended sales tax on the 100.00 subtotal.
	assert.True(t, with.Breakdown.ItemsSubtotal.Equal(money("107.25")))
	assert.True(t, without.Breakdown.ItemsSubtotal.Equal(money("100.00")))
}
