package tax

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landed-cost/internal/ratecache"
	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
	"landed-cost/pkg/platform"
)

func TestGSTStaticLookup(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	rr := p.GetRate(context.Background(), "IN", "electronics", decimal.RequireFromString("100"))
	assert.True(t, rr.Rate.Equal(decimal.RequireFromString("0.18")))
	assert.True(t, rr.CustomsRate.Equal(decimal.RequireFromString("0.10")))
	assert.Equal(t, 1.0, rr.Confidence)
	assert.Equal(t, api.SourceCache, rr.Source)
	assert.False(t, rr.LastUpdated.IsZero())
}

func TestGSTUnknownClassUsesStandardRate(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	rr := p.GetRate(context.Background(), "IN", "submarines", decimal.RequireFromString("100"))
	assert.True(t, rr.Rate.Equal(decimal.RequireFromString("0.18")))
	assert.Equal(t, 1.0, rr.Confidence, "regime default rate is authoritative, not a fallback")
}

func TestGSTUnknownJurisdictionFallsBack(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	rr := p.GetRate(context.Background(), "BR", "electronics", decimal.RequireFromString("100"))
	assert.Equal(t, api.SourceFallback, rr.Source)
	assert.Equal(t, confidence.Low, rr.Confidence)
}

func TestDutyDeMinimisZeroesCustoms(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	below := p.GetRate(context.Background(), "AU", "electronics", decimal.RequireFromString("100"))
	assert.True(t, below.CustomsRate.IsZero(), "below de-minimis pays no duty")

	above := p.GetRate(context.Background(), "AU", "electronics", decimal.RequireFromString("700"))
	assert.True(t, above.CustomsRate.Equal(decimal.RequireFromString("0.05")))
}

func TestValuationFloor(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	rr := p.GetRate(context.Background(), "IN", "phone", decimal.RequireFromString("30"))
	require.NotNil(t, rr.MinimumValuation)

	taxable, basis := TaxableValue(decimal.RequireFromString("30"), rr)
	assert.True(t, taxable.Equal(decimal.RequireFromString("50.00")), "declared below floor taxes the floor")
	assert.Equal(t, api.BasisMinimumFloor, basis)

	taxable, basis = TaxableValue(decimal.RequireFromString("80"), rr)
	assert.True(t, taxable.Equal(decimal.RequireFromString("80")))
	assert.Equal(t, api.BasisDeclared, basis)
}

func TestActualInvoiceRequiredOverridesFloor(t *testing.T) {
	floor := api.MinimumValuation{Amount: decimal.RequireFromString("50"), Currency: "USD"}
	rr := api.RateResult{
		Basis:            api.BasisActualInvoiceRequired,
		MinimumValuation: &floor,
	}

	taxable, basis := TaxableValue(decimal.RequireFromString("10"), rr)
	assert.True(t, taxable.Equal(decimal.RequireFromString("10")), "declared price wins regardless of floor")
	assert.Equal(t, api.BasisActualInvoiceRequired, basis)
}

func TestGSTBooksSignalActualInvoiceRequired(t *testing.T) {
	p := NewGSTProvider(GSTConfig{})

	rr := p.GetRate(context.Background(), "IN", "books", decimal.RequireFromString("20"))
	assert.Equal(t, api.BasisActualInvoiceRequired, rr.Basis)
	assert.True(t, rr.Rate.IsZero())
}

func TestVATReducedRateAndDeMinimis(t *testing.T) {
	p := NewVATProvider()

	books := p.GetRate(context.Background(), "DE", "books", decimal.RequireFromString("200"))
	assert.True(t, books.Rate.Equal(decimal.RequireFromString("0.07")))

	smallOrder := p.GetRate(context.Background(), "DE", "apparel", decimal.RequireFromString("100"))
	assert.True(t, smallOrder.CustomsRate.IsZero(), "below EU de-minimis pays no duty")

	bigOrder := p.GetRate(context.Background(), "DE", "apparel", decimal.RequireFromString("400"))
	assert.True(t, bigOrder.CustomsRate.Equal(decimal.RequireFromString("0.12")))
}

func TestSalesTaxProvider(t *testing.T) {
	p := NewSalesTaxProvider()

	us := p.GetRate(context.Background(), "US", "electronics", decimal.RequireFromString("100"))
	assert.True(t, us.Rate.Equal(decimal.RequireFromString("0.0725")))
	assert.True(t, us.CustomsRate.IsZero())

	unknown := p.GetRate(context.Background(), "JP", "electronics", decimal.RequireFromString("100"))
	assert.Equal(t, api.SourceFallback, unknown.Source)
}

func TestRegistryRouting(t *testing.T) {
	r := DefaultRegistry(ratecache.New(), RegistryConfig{})

	assert.Equal(t, "gst", r.ForJurisdiction("IN").Name())
	assert.Equal(t, "gst", r.ForJurisdiction("au").Name())
	assert.Equal(t, "vat", r.ForJurisdiction("DE").Name())
	assert.Equal(t, "sales-tax", r.ForJurisdiction("US").Name())
	assert.Equal(t, "fallback", r.ForJurisdiction("BR").Name())
}

func TestRemoteHybridLookup(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rate": 0.18, "customs_rate": 0.10, "confidence": 0.98, "last_updated": "2024-02-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	cache := ratecache.New()
	p := NewGSTProvider(GSTConfig{
		Remote: NewRemoteRates(platform.NewHTTPClient(5*time.Second), srv.URL),
		Cache:  cache,
		TTL:    time.Minute,
	})

	rr := p.GetRate(context.Background(), "IN", "electronics", decimal.RequireFromString("100"))
	assert.Equal(t, api.SourceLive, rr.Source)
	assert.Equal(t, 0.98, rr.Confidence)
	assert.Equal(t, 1, hits)

	// Second lookup within TTL is served from the cache with no remote call.
	rr = p.GetRate(context.Background(), "IN", "electronics", decimal.RequireFromString("100"))
	assert.Equal(t, api.SourceCache, rr.Source)
	assert.Equal(t, 1, hits)
}

func TestRemoteFailureDegradesToStaticTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGSTProvider(GSTConfig{
		Remote: NewRemoteRates(platform.NewHTTPClient(5*time.Second), srv.URL),
		Cache:  ratecache.New(),
		TTL:    time.Minute,
	})

	rr := p.GetRate(context.Background(), "IN", "electronics", decimal.RequireFromString("100"))
	assert.True(t, rr.Rate.Equal(decimal.RequireFromString("0.18")), "static table still answers")
	assert.Equal(t, api.SourceFallback, rr.Source)
	assert.Equal(t, confidence.Medium, rr.Confidence)
}
