package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/event"
	"github.com/shestoi/stockkeeper/internal/presentation"
	"github.com/shestoi/stockkeeper/internal/repository"
	"github.com/shestoi/stockkeeper/internal/repository/memory"
	"github.com/shestoi/stockkeeper/internal/service"
	platformhealth "github.com/shestoi/stockkeeper/platform/health/http"
)

type stubViewer struct {
	view presentation.ProductView
	err  error
}

func (s stubViewer) ProductView(ctx context.Context, productID string) (presentation.ProductView, error) {
	return s.view, s.err
}

func newTestRouter(t *testing.T, products ProductViewer, checks ...platformhealth.Check) http.Handler {
	t.Helper()
	repo := memory.NewMemoryRepository([]repository.StockRecord{
		{ProductID: "ski-001", LocationCode: "MAIN", Quantity: 10, ReservedQuantity: 2, Status: repository.StatusInStock},
		{ProductID: "ski-002", LocationCode: "MAIN", Quantity: 3, Status: repository.StatusLowStock},
	})
	logger := zap.NewNop()
	opts := service.Options{LocationCode: "MAIN", LowStockThreshold: service.DefaultLowStockThreshold}
	stock := service.NewStockService(logger, repo, event.NewLogPublisher(logger), nil, opts)
	query := service.NewQueryService(logger, repo, nil, "MAIN")
	return NewRouter(NewHandler(logger, stock, query, products), checks, logger)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetStock(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/inventory/ski-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ski-001", resp.ProductID)
	require.Equal(t, int32(8), resp.AvailableQuantity)
	require.Equal(t, "IN_STOCK", resp.Status)

	rec = doRequest(t, router, http.MethodGet, "/api/inventory/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetStatus(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/inventory/status/ski-002", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, StatusResponse{
		ProductID:         "ski-002",
		Status:            "LOW_STOCK",
		Quantity:          3,
		AvailableQuantity: 3,
		InStock:           true,
	}, resp)
}

func TestHandler_GetBatch(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/inventory/batch", []string{"ski-001", "missing", "ski-002"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	require.Contains(t, resp, "ski-001")
	require.Contains(t, resp, "ski-002")

	rec = doRequest(t, router, http.MethodPost, "/api/inventory/batch", `{"productIds": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Movements(t *testing.T) {
	qty := func(v int32) *int32 { return &v }

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "reserve", path: "/api/inventory/reserve", body: StockRequest{ProductID: "ski-001", Quantity: qty(8)}, wantStatus: http.StatusOK},
		{name: "reserve more than available", path: "/api/inventory/reserve", body: StockRequest{ProductID: "ski-001", Quantity: qty(9)}, wantStatus: http.StatusConflict},
		{name: "reserve unknown product", path: "/api/inventory/reserve", body: StockRequest{ProductID: "missing", Quantity: qty(1)}, wantStatus: http.StatusNotFound},
		{name: "release", path: "/api/inventory/release", body: StockRequest{ProductID: "ski-001", Quantity: qty(2)}, wantStatus: http.StatusOK},
		{name: "release more than reserved", path: "/api/inventory/release", body: StockRequest{ProductID: "ski-001", Quantity: qty(9)}, wantStatus: http.StatusNotFound},
		{name: "stock in", path: "/api/inventory/stock-in", body: StockRequest{ProductID: "ski-002", Quantity: qty(10)}, wantStatus: http.StatusOK},
		{name: "stock in beyond int32", path: "/api/inventory/stock-in", body: StockRequest{ProductID: "ski-002", Quantity: qty(math.MaxInt32)}, wantStatus: http.StatusBadRequest},
		{name: "stock out", path: "/api/inventory/stock-out", body: StockRequest{ProductID: "ski-001", Quantity: qty(2)}, wantStatus: http.StatusOK},
		{name: "stock out without reservation", path: "/api/inventory/stock-out", body: StockRequest{ProductID: "ski-002", Quantity: qty(1)}, wantStatus: http.StatusConflict},
		{name: "zero quantity", path: "/api/inventory/reserve", body: StockRequest{ProductID: "ski-001", Quantity: qty(0)}, wantStatus: http.StatusBadRequest},
		{name: "missing quantity", path: "/api/inventory/reserve", body: StockRequest{ProductID: "ski-001"}, wantStatus: http.StatusBadRequest},
		{name: "missing product id", path: "/api/inventory/stock-in", body: StockRequest{Quantity: qty(1)}, wantStatus: http.StatusBadRequest},
		{name: "malformed json", path: "/api/inventory/reserve", body: `{`, wantStatus: http.StatusBadRequest},
	}

	router := newTestRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := doRequest(t, router, http.MethodGet, "/api/inventory/ski-001", nil)
	var resp StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	// 10/2 -> reserve 8 -> 10/10 -> release 2 -> 10/8 -> ship 2 -> 8/6
	require.Equal(t, int32(8), resp.Quantity)
	require.Equal(t, int32(6), resp.ReservedQuantity)
	require.Equal(t, "LOW_STOCK", resp.Status)
}

func TestHandler_InsufficientStockBody(t *testing.T) {
	router := newTestRouter(t, nil)
	qty := int32(20)

	rec := doRequest(t, router, http.MethodPost, "/api/inventory/reserve", StockRequest{ProductID: "ski-001", Quantity: &qty})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Requested)
	require.NotNil(t, resp.Available)
	require.Equal(t, int32(20), *resp.Requested)
	require.Equal(t, int32(8), *resp.Available)
}

func TestHandler_GetLowStock(t *testing.T) {
	router := newTestRouter(t, nil)

	// ski-001: quantity 10, available 8; ski-002: quantity 3, available 3
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{name: "default threshold", path: "/api/inventory/low-stock", wantStatus: http.StatusOK, wantLen: 1},
		{name: "explicit threshold", path: "/api/inventory/low-stock?threshold=10", wantStatus: http.StatusOK, wantLen: 2},
		{name: "zero threshold", path: "/api/inventory/low-stock?threshold=0", wantStatus: http.StatusOK, wantLen: 0},
		{name: "negative threshold", path: "/api/inventory/low-stock?threshold=-1", wantStatus: http.StatusBadRequest},
		{name: "not a number", path: "/api/inventory/low-stock?threshold=abc", wantStatus: http.StatusBadRequest},
		{name: "available below quantity", path: "/api/inventory/low-available?threshold=8", wantStatus: http.StatusOK, wantLen: 2},
		{name: "available default threshold", path: "/api/inventory/low-available", wantStatus: http.StatusOK, wantLen: 1},
		{name: "available bad threshold", path: "/api/inventory/low-available?threshold=x", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp []StockResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Len(t, resp, tt.wantLen)
		})
	}
}

func TestHandler_CreateAndDiscontinue(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/inventory", CreateStockRequest{ProductID: "boot-001", Quantity: 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "LOW_STOCK", created.Status)
	require.NotEmpty(t, created.ID)

	rec = doRequest(t, router, http.MethodPost, "/api/inventory", CreateStockRequest{ProductID: "boot-001", Quantity: 4})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/inventory", CreateStockRequest{ProductID: "boot-002", Quantity: -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/inventory/boot-001/discontinued", DiscontinuedRequest{Discontinued: true})
	require.Equal(t, http.StatusOK, rec.Code)
	var discontinued StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&discontinued))
	require.Equal(t, "DISCONTINUED", discontinued.Status)

	rec = doRequest(t, router, http.MethodPut, "/api/inventory/boot-001/discontinued", DiscontinuedRequest{Discontinued: false})
	require.Equal(t, http.StatusOK, rec.Code)
	var restored StockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&restored))
	require.Equal(t, "LOW_STOCK", restored.Status)

	rec = doRequest(t, router, http.MethodPut, "/api/inventory/missing/discontinued", DiscontinuedRequest{Discontinued: true})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetProduct(t *testing.T) {
	t.Run("composed view", func(t *testing.T) {
		router := newTestRouter(t, stubViewer{view: presentation.ProductView{ID: "p-1", Name: "Carving Ski"}})
		rec := doRequest(t, router, http.MethodGet, "/api/products/p-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view presentation.ProductView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
		require.Equal(t, "Carving Ski", view.Name)
	})

	t.Run("unknown product", func(t *testing.T) {
		router := newTestRouter(t, stubViewer{err: presentation.ErrProductNotFound})
		rec := doRequest(t, router, http.MethodGet, "/api/products/p-1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("catalog down", func(t *testing.T) {
		router := newTestRouter(t, stubViewer{err: errors.New("mongo down")})
		rec := doRequest(t, router, http.MethodGet, "/api/products/p-1", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("route absent without composer", func(t *testing.T) {
		router := newTestRouter(t, nil)
		rec := doRequest(t, router, http.MethodGet, "/api/products/p-1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	failing := platformhealth.Check{Name: "store", Probe: func(ctx context.Context) error { return errors.New("down") }}
	router = newTestRouter(t, nil, failing)
	rec = doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
