// Package engine orchestrates quote calculations: it fans out per-item rate
// and weight resolution under a bounded worker pool, aggregates the results
// into an itemized breakdown, and attaches a confidence envelope describing
// how much of the quote came from live versus fallback data.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"landed-cost/internal/currency"
	"landed-cost/internal/fees"
	"landed-cost/internal/ratecache"
	"landed-cost/internal/tax"
	"landed-cost/internal/validate"
	"landed-cost/internal/weight"
	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
)

// baseCurrency is the platform pricing currency. Item prices, the fee matrix
// and tax floors are all denominated in it; a quote converts once, at the end.
const baseCurrency = "USD"

// RateSnapshot is a point-in-time capture of a rate a quote was computed
// from, persisted for reproducibility.
type RateSnapshot struct {
	ID           uuid.UUID
	Key          string // e.g. "tax:IN:electronics", "fx:USD:INR"
	Jurisdiction string
	ItemClass    string
	Rate         decimal.Decimal
	CustomsRate  decimal.Decimal
	Source       api.RateSource
	CapturedAt   time.Time
}

// SnapshotRecorder persists rate snapshots. Recording is best-effort: a
// failed write degrades the audit trail, never the quote.
type SnapshotRecorder interface {
	Record(ctx context.Context, snap RateSnapshot) (uuid.UUID, error)
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Log       zerolog.Logger
	Cache     *ratecache.Cache
	Converter *currency.Converter
	Weights   *weight.Resolver
	Fees      *fees.Resolver
	Taxes     *tax.Registry
	Snapshots SnapshotRecorder // optional
}

// Orchestrator is the quote calculation engine. Safe for concurrent use; all
// shared state lives in the rate cache and the atomic stats counters.
type Orchestrator struct {
	cfg  Config
	log  zerolog.Logger
	deps Deps
	sem  *semaphore.Weighted

	totalCalcs  atomic.Int64
	successful  atomic.Int64
	failed      atomic.Int64
	calcNanos   atomic.Int64
	apiCalls    atomic.Int64
	cacheHits   atomic.Int64
	fallbacks   atomic.Int64
	errsHandled atomic.Int64
}

func New(cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:  cfg,
		log:  deps.Log,
		deps: deps,
		sem:  semaphore.NewWeighted(int64(cfg.Workers)),
	}
}

// tally accumulates the confidence envelope for one calculation.
type tally struct {
	mu  sync.Mutex
	env api.ConfidenceEnvelope
}

func (t *tally) count(src api.RateSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch src {
	case api.SourceLive:
		t.env.APICallsMade++
	case api.SourceCache:
		t.env.CacheHits++
	case api.SourceFallback:
		t.env.FallbacksUsed++
	}
	// SourceExact is explicit caller input; it neither helps nor hurts.
}

func (t *tally) errorHandled() {
	t.mu.Lock()
	t.env.ErrorsHandled++
	t.mu.Unlock()
}

func (t *tally) fallbacksN(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.env.FallbacksUsed += n
	t.mu.Unlock()
}

func (t *tally) snapshot() api.ConfidenceEnvelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	env := t.env
	env.Score = confidence.Clamp(confidence.Decay(1.0, env.FallbacksUsed+env.ErrorsHandled))
	return env
}

// itemOutcome carries one item's resolution out of the fan-out stage. All
// money values are still in the base currency.
type itemOutcome struct {
	item    api.ItemInput
	lineKg  float64
	rate    api.RateResult
	weight  api.WeightResult
	taxable decimal.Decimal
	basis   api.ValuationBasis
	customs decimal.Decimal
	taxAmt  decimal.Decimal
}

// Calculate produces a quote for one request. It never returns an error:
// validation failures and missing conversion paths produce Success=false
// results, everything else degrades to fallback values with reduced
// confidence.
func (o *Orchestrator) Calculate(ctx context.Context, req api.CalculationRequest) api.QuoteCalculationResult {
	o.totalCalcs.Add(1)
	start := time.Now()
	defer func() { o.calcNanos.Add(int64(time.Since(start))) }()

	if vr := validate.Request(req); !vr.IsValid {
		o.failed.Add(1)
		return api.QuoteCalculationResult{
			ID:         uuid.New(),
			Success:    false,
			Validation: &vr,
			Error:      "request validation failed",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CalcTimeout)
	defer cancel()

	t := &tally{}
	outcomes := make([]itemOutcome, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			if err := o.sem.Acquire(gctx, 1); err != nil {
				// Deadline hit while queued: resolve from local data only.
				outcomes[i] = o.resolveItem(gctx, req, item, t)
				return nil
			}
			defer o.sem.Release(1)
			outcomes[i] = o.resolveItem(gctx, req, item, t)
			return nil
		})
	}
	// Workers never return errors; the group is used for structured join.
	_ = g.Wait()

	result, ok := o.aggregate(ctx, req, outcomes, t)
	if !ok {
		o.failed.Add(1)
		o.absorb(t)
		return result
	}

	o.successful.Add(1)
	o.absorb(t)
	o.log.Debug().
		Str("quote_id", result.ID.String()).
		Str("destination", req.DestinationCountry).
		Int("items", len(req.Items)).
		Float64("confidence", result.Confidence.Score).
		Dur("elapsed", time.Since(start)).
		Msg("quote calculated")
	return result
}

// resolveItem runs the per-item stage: weight, jurisdiction rates, valuation
// basis, customs and destination tax amounts. It cannot fail.
func (o *Orchestrator) resolveItem(ctx context.Context, req api.CalculationRequest, item api.ItemInput, t *tally) itemOutcome {
	if ctx.Err() != nil {
		// The calculation deadline already passed. Static lookups below still
		// answer; record the degradation.
		t.errorHandled()
	}

	w := o.deps.Weights.Resolve(item)
	t.count(w.Source)

	lineValue := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

	provCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	rate := o.deps.Taxes.ForJurisdiction(req.DestinationCountry).
		GetRate(provCtx, req.DestinationCountry, item.Category, lineValue)
	cancel()
	t.count(rate.Source)

	taxable, basis := tax.TaxableValue(lineValue, rate)

	customs := round2(taxable.Mul(rate.CustomsRate))

	base := taxable
	if o.cfg.TaxBase == TaxBaseItemPricePlusDuty {
		base = taxable.Add(customs)
	}
	taxAmt := round2(base.Mul(rate.Rate))

	return itemOutcome{
		item:    item,
		lineKg:  w.WeightKg * float64(item.Quantity),
		rate:    rate,
		weight:  w,
		taxable: taxable,
		basis:   basis,
		customs: customs,
		taxAmt:  taxAmt,
	}
}

// aggregate runs the fan-in stage: fee schedule, component totals, currency
// conversion, audit trail. The only failure mode is a missing conversion path.
func (o *Orchestrator) aggregate(ctx context.Context, req api.CalculationRequest, outcomes []itemOutcome, t *tally) (api.QuoteCalculationResult, bool) {
	id := uuid.New()

	subtotal := decimal.Zero
	customsTotal := decimal.Zero
	taxTotal := decimal.Zero
	totalKg := 0.0
	for _, out := range outcomes {
		subtotal = subtotal.Add(out.item.UnitPrice.Mul(decimal.NewFromInt(int64(out.item.Quantity))))
		customsTotal = customsTotal.Add(out.customs)
		taxTotal = taxTotal.Add(out.taxAmt)
		totalKg += out.lineKg
	}

	if o.cfg.ApplyOriginTax {
		provCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
		originRate := o.deps.Taxes.ForJurisdiction(req.OriginCountry).
			GetRate(provCtx, req.OriginCountry, "", subtotal)
		cancel()
		t.count(originRate.Source)
		subtotal = subtotal.Add(round2(subtotal.Mul(originRate.Rate)))
	}

	schedule := o.deps.Fees.Resolve(req.DestinationCountry)
	t.fallbacksN(schedule.TierMisses)

	shipping := round2(schedule.Shipping(totalKg, subtotal))
	handling := round2(schedule.Handling(subtotal, o.cfg.HandlingPolicy))

	insurance := decimal.Zero
	if req.IncludeInsurance || o.cfg.InsuranceDefault {
		insurance = round2(schedule.Insurance(subtotal))
	}

	charged := subtotal.Add(shipping).Add(customsTotal).Add(taxTotal).Add(handling).Add(insurance)
	gateway := round2(schedule.GatewayFee(charged))

	conv, err := o.deps.Converter.Convert(ctx, decimal.NewFromInt(1), baseCurrency, req.TargetCurrency)
	if err != nil {
		return api.QuoteCalculationResult{
			ID:         id,
			Success:    false,
			Confidence: t.snapshot(),
			Error:      err.Error(),
		}, false
	}
	t.count(conv.Source)
	fx := conv.Rate

	// Each component is converted and rounded independently; the grand total
	// is the sum of the rounded components, so the invariant holds by
	// construction in the target currency.
	breakdown := api.QuoteBreakdown{
		ItemsSubtotal:       round2(subtotal.Mul(fx)),
		Shipping:            round2(shipping.Mul(fx)),
		CustomsTotal:        round2(customsTotal.Mul(fx)),
		DestinationTaxTotal: round2(taxTotal.Mul(fx)),
		Handling:            round2(handling.Mul(fx)),
		Insurance:           round2(insurance.Mul(fx)),
		GatewayFee:          round2(gateway.Mul(fx)),
		Currency:            normalizeCurrency(req.TargetCurrency),
	}
	breakdown.GrandTotal = breakdown.ItemsSubtotal.
		Add(breakdown.Shipping).
		Add(breakdown.CustomsTotal).
		Add(breakdown.DestinationTaxTotal).
		Add(breakdown.Handling).
		Add(breakdown.Insurance).
		Add(breakdown.GatewayFee)

	items := make([]api.ItemBreakdown, len(outcomes))
	for i, out := range outcomes {
		taxable := round2(out.taxable.Mul(fx))
		customs := round2(out.customs.Mul(fx))
		taxAmt := round2(out.taxAmt.Mul(fx))
		items[i] = api.ItemBreakdown{
			ItemID:           out.item.ID,
			ResolvedWeightKg: out.weight.WeightKg,
			ResolvedCategory: out.item.Category,
			ValuationBasis:   out.basis,
			TaxableValue:     taxable,
			CustomsRate:      out.rate.CustomsRate,
			CustomsAmount:    customs,
			TaxRate:          out.rate.Rate,
			TaxAmount:        taxAmt,
			LandedCost:       taxable.Add(customs).Add(taxAmt),
		}
	}

	audit := api.AuditTrail{
		CalculatedAt: time.Now().UTC(),
		ExchangeRate: fx,
	}
	o.recordSnapshots(ctx, req, outcomes, conv, &audit)

	return api.QuoteCalculationResult{
		ID:         id,
		Success:    true,
		Breakdown:  &breakdown,
		Items:      items,
		Confidence: t.snapshot(),
		Audit:      audit,
	}, true
}

// recordSnapshots persists the rates this quote used, one per distinct rate
// key. Failures are logged and dropped.
func (o *Orchestrator) recordSnapshots(ctx context.Context, req api.CalculationRequest, outcomes []itemOutcome, conv api.ConversionResult, audit *api.AuditTrail) {
	if o.deps.Snapshots == nil {
		return
	}
	audit.SnapshotsUsed = make(map[string]uuid.UUID)

	record := func(snap RateSnapshot) {
		sid, err := o.deps.Snapshots.Record(ctx, snap)
		if err != nil {
			o.log.Warn().Err(err).Str("rate_key", snap.Key).Msg("rate snapshot write failed")
			return
		}
		audit.SnapshotsUsed[snap.Key] = sid
	}

	now := time.Now().UTC()
	seen := make(map[string]bool)
	for _, out := range outcomes {
		key := "tax:" + req.DestinationCountry + ":" + out.item.Category
		if seen[key] {
			continue
		}
		seen[key] = true
		record(RateSnapshot{
			ID:           uuid.New(),
			Key:          key,
			Jurisdiction: req.DestinationCountry,
			ItemClass:    out.item.Category,
			Rate:         out.rate.Rate,
			CustomsRate:  out.rate.CustomsRate,
			Source:       out.rate.Source,
			CapturedAt:   now,
		})
	}
	record(RateSnapshot{
		ID:         uuid.New(),
		Key:        "fx:" + baseCurrency + ":" + normalizeCurrency(req.TargetCurrency),
		Rate:       conv.Rate,
		Source:     conv.Source,
		CapturedAt: now,
	})
}

// BatchResult pairs a caller-assigned ID with its calculation result.
type BatchResult struct {
	ID     string                     `json:"id"`
	Result api.QuoteCalculationResult `json:"result"`
}

// CalculateBatch prices several requests concurrently. Results come back in
// input order; one failed calculation never affects its neighbors.
func (o *Orchestrator) CalculateBatch(ctx context.Context, reqs []api.BatchRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	var wg sync.WaitGroup
	for i, br := range reqs {
		i, br := i, br
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = BatchResult{ID: br.ID, Result: o.Calculate(ctx, br.Request)}
		}()
	}
	wg.Wait()
	return results
}

// ClearCache evicts every cached rate. The next lookups go live again.
func (o *Orchestrator) ClearCache() {
	o.deps.Cache.Clear()
}

// Stats is a snapshot of the engine's lifetime counters.
type Stats struct {
	TotalCalculations      int64              `json:"total_calculations"`
	SuccessfulCalculations int64              `json:"successful_calculations"`
	FailedCalculations     int64              `json:"failed_calculations"`
	APICallsMade           int64              `json:"api_calls_made"`
	CacheHits              int64              `json:"cache_hits"`
	FallbacksUsed          int64              `json:"fallbacks_used"`
	ErrorsHandled          int64              `json:"errors_handled"`
	AvgCalcMillis          float64            `json:"avg_calc_ms"`
	Cache                  ratecache.Counters `json:"cache"`
}

func (o *Orchestrator) Stats() Stats {
	var avgMillis float64
	if total := o.totalCalcs.Load(); total > 0 {
		avgMillis = float64(o.calcNanos.Load()) / float64(total) / float64(time.Millisecond)
	}
	return Stats{
		TotalCalculations:      o.totalCalcs.Load(),
		SuccessfulCalculations: o.successful.Load(),
		FailedCalculations:     o.failed.Load(),
		APICallsMade:           o.apiCalls.Load(),
		CacheHits:              o.cacheHits.Load(),
		FallbacksUsed:          o.fallbacks.Load(),
		ErrorsHandled:          o.errsHandled.Load(),
		AvgCalcMillis:          avgMillis,
		Cache:                  o.deps.Cache.Stats(),
	}
}

// absorb folds one calculation's envelope into the lifetime counters.
func (o *Orchestrator) absorb(t *tally) {
	env := t.snapshot()
	o.apiCalls.Add(int64(env.APICallsMade))
	o.cacheHits.Add(int64(env.CacheHits))
	o.fallbacks.Add(int64(env.FallbacksUsed))
	o.errsHandled.Add(int64(env.ErrorsHandled))
}

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
