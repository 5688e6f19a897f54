package tax

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/internal/ratecache"
	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
)

// GSTProvider serves destination-GST regimes (IN, AU, NZ, SG). It is a
// hybrid: when a remote rate source is configured it is consulted through
// the rate cache, with the static table as the degradation path; otherwise
// lookups are purely local.
type GSTProvider struct {
	tables  map[string]regimeTable
	remote  *RemoteRates
	cache   *ratecache.Cache
	ttl     time.Duration
	timeout time.Duration
}

// GSTConfig holds GST provider tunables.
type GSTConfig struct {
	Remote  *RemoteRates  // optional live rate source
	Cache   *ratecache.Cache
	TTL     time.Duration // cache TTL for tax rates
	Timeout time.Duration // bound on one remote lookup
}

func NewGSTProvider(cfg GSTConfig) *GSTProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &GSTProvider{
		tables:  gstTables,
		remote:  cfg.Remote,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
	}
}

func (p *GSTProvider) Name() string { return "gst" }

// GetRate resolves the GST and customs duty rates for one jurisdiction/class
// pair. Remote failures degrade to the static table; unknown jurisdictions
// degrade to a flagged fallback. It never fails.
func (p *GSTProvider) GetRate(ctx context.Context, jurisdiction, itemClass string, valuation decimal.Decimal) api.RateResult {
	jur := strings.ToUpper(strings.TrimSpace(jurisdiction))

	if p.remote != nil && p.cache != nil {
		if result, ok := p.remoteLookup(ctx, jur, itemClass, valuation); ok {
			return result
		}
	}

	table, ok := p.tables[jur]
	if !ok {
		return fallbackRateResult()
	}
	result := table.resolve(itemClass, valuation)
	if p.remote != nil {
		// A configured remote source failed us; the static answer is still
		// trustworthy data, but record that we degraded.
		result.Source = api.SourceFallback
		result.Confidence = confidence.Medium
	}
	return result
}

func (p *GSTProvider) remoteLookup(ctx context.Context, jur, itemClass string, valuation decimal.Decimal) (api.RateResult, bool) {
	key := "tax:" + jur + ":" + strings.ToLower(strings.TrimSpace(itemClass))
	lookup, err := p.cache.GetOrFetch(ctx, key, p.ttl, func(ctx context.Context) (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.remote.Fetch(fetchCtx, jur, strings.ToLower(strings.TrimSpace(itemClass)))
	})
	if err != nil {
		return api.RateResult{}, false
	}

	rr := lookup.Value.(remoteRate)
	result := api.RateResult{
		Rate:             rr.TaxRate,
		CustomsRate:      rr.CustomsRate,
		Basis:            rr.Basis,
		MinimumValuation: rr.Floor,
		Confidence:       rr.Confidence,
		Source:           lookup.Source,
		LastUpdated:      rr.LastUpdated,
	}
	if lookup.Stale {
		result.Source = api.SourceFallback
		result.Confidence = confidence.Medium
	}
	// De-minimis relief applies to remote rates too.
	if table, ok := p.tables[jur]; ok && table.DutyDeMinimisUSD != nil && valuation.LessThan(*table.DutyDeMinimisUSD) {
		result.CustomsRate = decimal.Zero
	}
	return result, true
}

// gstTables are the static GST regime tables. Rates are revision-dated so
// quotes can report how old their tax data is.
var gstTables = map[string]regimeTable{
	"IN": {
		Standard: rate("0.18"),
		ClassRates: map[string]decimal.Decimal{
			"electronics": rate("0.18"),
			"phone":       rate("0.18"),
			"laptop":      rate("0.18"),
			"tablet":      rate("0.18"),
			"camera":      rate("0.28"),
			"apparel":     rate("0.12"),
			"shoes":       rate("0.18"),
			"books":       rate("0.00"),
			"cosmetics":   rate("0.18"),
			"toys":        rate("0.12"),
			"watches":     rate("0.18"),
			"jewelry":     rate("0.03"),
			"home":        rate("0.18"),
			"kitchen":     rate("0.18"),
			"sports":      rate("0.12"),
			"supplements": rate("0.18"),
		},
		CustomsDefault: rate("0.10"),
		CustomsRates: map[string]decimal.Decimal{
			"electronics": rate("0.10"),
			"phone":       rate("0.20"),
			"laptop":      rate("0.10"),
			"apparel":     rate("0.20"),
			"shoes":       rate("0.25"),
			"books":       rate("0.00"),
			"cosmetics":   rate("0.20"),
			"toys":        rate("0.20"),
			"watches":     rate("0.20"),
			"jewelry":     rate("0.10"),
		},
		Floors: map[string]decimal.Decimal{
			"phone":   rate("50.00"),
			"laptop":  rate("200.00"),
			"watches": rate("30.00"),
			"jewelry": rate("25.00"),
		},
		ActualInvoiceClasses: map[string]bool{
			"books": true,
		},
		LastRevised: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	},
	"AU": {
		Standard:         rate("0.10"),
		CustomsDefault:   rate("0.05"),
		DutyDeMinimisUSD: ratePtr("650.00"),
		LastRevised:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	},
	"NZ": {
		Standard:         rate("0.15"),
		CustomsDefault:   rate("0.05"),
		DutyDeMinimisUSD: ratePtr("600.00"),
		LastRevised:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	},
	"SG": {
		Standard:         rate("0.09"),
		CustomsDefault:   rate("0.00"),
		DutyDeMinimisUSD: ratePtr("300.00"),
		LastRevised:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	},
}
