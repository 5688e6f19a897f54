package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landed-cost/internal/engine"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	orch := engine.Build(engine.Config{}, zerolog.Nop(), nil, nil)
	return NewServer(orch, nil, nil, zerolog.Nop()).Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func quoteBody() map[string]any {
	return map[string]any{
		"origin_country":      "US",
		"destination_country": "IN",
		"target_currency":     "USD",
		"items": []map[string]any{
			{"id": "item-1", "unit_price": "100", "quantity": 1, "category": "electronics"},
		},
	}
}

func TestQuoteEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h, "/api/v1/quote", quoteBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Breakdown)
	assert.Equal(t, "10.00", resp.Breakdown.CustomsTotal)
	assert.Equal(t, "19.80", resp.Breakdown.DestinationTaxTotal)
	assert.Equal(t, "USD", resp.Breakdown.Currency)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.CalculatedAt)

	// The serialized components still sum to the grand total.
	sum := decimal.Zero
	for _, v := range []string{
		resp.Breakdown.ItemsSubtotal, resp.Breakdown.Shipping,
		resp.Breakdown.CustomsTotal, resp.Breakdown.DestinationTaxTotal,
		resp.Breakdown.Handling, resp.Breakdown.Insurance, resp.Breakdown.GatewayFee,
	} {
		sum = sum.Add(decimal.RequireFromString(v))
	}
	assert.Equal(t, resp.Breakdown.GrandTotal, sum.StringFixed(2))
}

func TestQuoteEndpointMalformedBody(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteEndpointValidationFailure(t *testing.T) {
	h := testHandler(t)

	body := quoteBody()
	body["items"] = []map[string]any{}
	rec := postJSON(t, h, "/api/v1/quote", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Validation)
	assert.NotEmpty(t, resp.Validation.Errors)
}

func TestBatchEndpoint(t *testing.T) {
	h := testHandler(t)

	batch := []map[string]any{
		{"id": "a", "request": quoteBody()},
		{"id": "b", "request": quoteBody()},
	}
	rec := postJSON(t, h, "/api/v1/quote/batch", batch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].ID)
	assert.Equal(t, "b", resp.Results[1].ID)
	assert.True(t, resp.Results[0].Quote.Success)
}

func TestBatchEndpointRejectsEmptyBatch(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h, "/api/v1/quote/batch", []map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h := testHandler(t)
	postJSON(t, h, "/api/v1/quote", quoteBody())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats engine.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalCalculations)
	assert.Equal(t, int64(1), stats.SuccessfulCalculations)
}

func TestCacheClearEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h, "/api/v1/cache/clear", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "no API key configured means open access")
}

func TestCacheClearEndpointEnforcesAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "hunter2")
	h := testHandler(t)

	rec := postJSON(t, h, "/api/v1/cache/clear", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", nil)
	req.Header.Set("X-API-Key", "hunter2")
	authed := httptest.NewRecorder()
	h.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
}

func TestSnapshotsEndpointWithoutStore(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots?rate_key=fx:USD:INR", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := testHandler(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
