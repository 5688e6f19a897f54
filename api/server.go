// Package api provides the HTTP API server for the quote calculation engine.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"landed-cost/db/clickhouse"
	"landed-cost/internal/engine"
	"landed-cost/pkg/api"
	"landed-cost/pkg/platform"
)

// Version is stamped at build time.
var Version = "dev"

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	MaxBatchSize   int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           platform.GetEnvInt("PORT", 8080),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 4 * 1024 * 1024, // 4MB
		MaxBatchSize:   100,
	}
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	engine     *engine.Orchestrator
	snapshots  *clickhouse.Store // optional
	config     *Config
	log        zerolog.Logger
}

// NewServer creates a new API server. snapshots may be nil when the audit
// store is not configured.
func NewServer(orch *engine.Orchestrator, snapshots *clickhouse.Store, config *Config, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		engine:    orch,
		snapshots: snapshots,
		config:    config,
		log:       log,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/quote", s.handleQuote)
		r.Post("/quote/batch", s.handleQuoteBatch)
		r.Get("/stats", s.handleStats)
		r.Get("/snapshots", s.handleListSnapshots)

		// Cache clearing is operator surface, key-gated when a key is set.
		r.With(platform.APIKeyMiddleware).Post("/cache/clear", s.handleCacheClear)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Int("port", s.config.Port).Msg("quote API server starting")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and drains on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.snapshots != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "snapshot store not ready")
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"version": Version})
}

// =============================================================================
// QUOTE ENDPOINTS
// =============================================================================

// QuoteResponse is the API shape of one calculation result. Money values are
// fixed-point strings; floats never carry money across the wire.
type QuoteResponse struct {
	ID            string                 `json:"id"`
	Success       bool                   `json:"success"`
	Breakdown     *BreakdownResponse     `json:"breakdown,omitempty"`
	Items         []ItemResponse         `json:"items,omitempty"`
	Confidence    api.ConfidenceEnvelope `json:"confidence"`
	CalculatedAt  string                 `json:"calculated_at,omitempty"`
	ExchangeRate  string                 `json:"exchange_rate,omitempty"`
	SnapshotsUsed map[string]string      `json:"snapshots_used,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Validation    *api.ValidationResult  `json:"validation,omitempty"`
}

// BreakdownResponse is the itemized quote total.
type BreakdownResponse struct {
	ItemsSubtotal       string `json:"items_subtotal"`
	Shipping            string `json:"shipping"`
	CustomsTotal        string `json:"customs_total"`
	DestinationTaxTotal string `json:"destination_tax_total"`
	Handling            string `json:"handling"`
	Insurance           string `json:"insurance"`
	GatewayFee          string `json:"gateway_fee"`
	GrandTotal          string `json:"grand_total"`
	Currency            string `json:"currency"`
}

// ItemResponse is one per-item line.
type ItemResponse struct {
	ItemID           string  `json:"item_id"`
	ResolvedWeightKg float64 `json:"resolved_weight_kg"`
	ResolvedCategory string  `json:"resolved_category,omitempty"`
	ValuationBasis   string  `json:"valuation_basis"`
	TaxableValue     string  `json:"taxable_value"`
	CustomsRate      string  `json:"customs_rate"`
	CustomsAmount    string  `json:"customs_amount"`
	TaxRate          string  `json:"tax_rate"`
	TaxAmount        string  `json:"tax_amount"`
	LandedCost       string  `json:"landed_cost"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var req api.CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	result := s.engine.Calculate(r.Context(), req)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	s.jsonResponse(w, status, buildQuoteResponse(result))
}

// BatchResponse is the API shape of a batch calculation.
type BatchResponse struct {
	Results []BatchItemResponse `json:"results"`
}

// BatchItemResponse pairs a caller ID with its quote.
type BatchItemResponse struct {
	ID    string        `json:"id"`
	Quote QuoteResponse `json:"quote"`
}

func (s *Server) handleQuoteBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var reqs []api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if len(reqs) == 0 {
		s.jsonError(w, http.StatusBadRequest, "empty batch")
		return
	}
	if len(reqs) > s.config.MaxBatchSize {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("batch too large: %d > %d", len(reqs), s.config.MaxBatchSize))
		return
	}

	results := s.engine.CalculateBatch(r.Context(), reqs)

	resp := BatchResponse{Results: make([]BatchItemResponse, len(results))}
	for i, br := range results {
		resp.Results[i] = BatchItemResponse{ID: br.ID, Quote: buildQuoteResponse(br.Result)}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func buildQuoteResponse(result api.QuoteCalculationResult) QuoteResponse {
	resp := QuoteResponse{
		ID:         result.ID.String(),
		Success:    result.Success,
		Confidence: result.Confidence,
		Error:      result.Error,
		Validation: result.Validation,
	}

	if result.Breakdown != nil {
		b := result.Breakdown
		resp.Breakdown = &BreakdownResponse{
			ItemsSubtotal:       b.ItemsSubtotal.StringFixed(2),
			Shipping:            b.Shipping.StringFixed(2),
			CustomsTotal:        b.CustomsTotal.StringFixed(2),
			DestinationTaxTotal: b.DestinationTaxTotal.StringFixed(2),
			Handling:            b.Handling.StringFixed(2),
			Insurance:           b.Insurance.StringFixed(2),
			GatewayFee:          b.GatewayFee.StringFixed(2),
			GrandTotal:          b.GrandTotal.StringFixed(2),
			Currency:            b.Currency,
		}
	}

	if len(result.Items) > 0 {
		resp.Items = make([]ItemResponse, len(result.Items))
		for i, item := range result.Items {
			resp.Items[i] = ItemResponse{
				ItemID:           item.ItemID,
				ResolvedWeightKg: item.ResolvedWeightKg,
				ResolvedCategory: item.ResolvedCategory,
				ValuationBasis:   string(item.ValuationBasis),
				TaxableValue:     item.TaxableValue.StringFixed(2),
				CustomsRate:      item.CustomsRate.String(),
				CustomsAmount:    item.CustomsAmount.StringFixed(2),
				TaxRate:          item.TaxRate.String(),
				TaxAmount:        item.TaxAmount.StringFixed(2),
				LandedCost:       item.LandedCost.StringFixed(2),
			}
		}
	}

	if result.Success {
		resp.CalculatedAt = result.Audit.CalculatedAt.Format(time.RFC3339)
		resp.ExchangeRate = result.Audit.ExchangeRate.String()
		if len(result.Audit.SnapshotsUsed) > 0 {
			resp.SnapshotsUsed = make(map[string]string, len(result.Audit.SnapshotsUsed))
			for key, id := range result.Audit.SnapshotsUsed {
				resp.SnapshotsUsed[key] = id.String()
			}
		}
	}
	return resp
}

// =============================================================================
// OPERATOR ENDPOINTS
// =============================================================================

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearCache()
	s.log.Info().Msg("rate cache cleared")
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		s.jsonError(w, http.StatusNotImplemented, "snapshot store not configured")
		return
	}

	rateKey := r.URL.Query().Get("rate_key")
	if rateKey == "" {
		s.jsonError(w, http.StatusBadRequest, "rate_key is required")
		return
	}

	snaps, err := s.snapshots.ListSnapshots(r.Context(), rateKey, 100)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list snapshots: %v", err))
		return
	}

	type SnapshotResponse struct {
		ID          string `json:"id"`
		RateKey     string `json:"rate_key"`
		Rate        string `json:"rate"`
		CustomsRate string `json:"customs_rate"`
		Source      string `json:"source"`
		CapturedAt  string `json:"captured_at"`
	}

	resp := make([]SnapshotResponse, len(snaps))
	for i, snap := range snaps {
		resp[i] = SnapshotResponse{
			ID:          snap.ID.String(),
			RateKey:     snap.RateKey,
			Rate:        snap.Rate.String(),
			CustomsRate: snap.CustomsRate.String(),
			Source:      snap.Source,
			CapturedAt:  snap.CapturedAt.Format(time.RFC3339),
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
