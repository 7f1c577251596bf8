package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/presentation"
	"github.com/shestoi/stockkeeper/internal/repository"
	"github.com/shestoi/stockkeeper/internal/service"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// ProductViewer собирает представление товара
type ProductViewer interface {
	ProductView(ctx context.Context, productID string) (presentation.ProductView, error)
}

// Handler содержит HTTP-обработчики Inventory Service
// Зависит от service слоя, но не знает о деталях хранилища
type Handler struct {
	logger   *zap.Logger
	stock    *service.StockService
	query    *service.QueryService
	products ProductViewer
}

// NewHandler создаёт новый HTTP handler
// products может быть nil, тогда /api/products не регистрируется
func NewHandler(logger *zap.Logger, stock *service.StockService, query *service.QueryService, products ProductViewer) *Handler {
	return &Handler{
		logger:   logger,
		stock:    stock,
		query:    query,
		products: products,
	}
}

// StockRequest - тело запросов reserve/release/stock-in/stock-out
type StockRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int32 `json:"quantity"`
}

// CreateStockRequest - тело запроса на создание складской записи
type CreateStockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

// DiscontinuedRequest - тело запроса PUT /{productId}/discontinued
type DiscontinuedRequest struct {
	Discontinued bool `json:"discontinued"`
}

// StockResponse - складская запись в HTTP ответе
type StockResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"productId"`
	LocationCode      string    `json:"locationCode"`
	Quantity          int32     `json:"quantity"`
	ReservedQuantity  int32     `json:"reservedQuantity"`
	AvailableQuantity int32     `json:"availableQuantity"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// StatusResponse - ответ GET /status/{productId}
type StatusResponse struct {
	ProductID         string `json:"productId"`
	Status            string `json:"status"`
	Quantity          int32  `json:"quantity"`
	ReservedQuantity  int32  `json:"reservedQuantity"`
	AvailableQuantity int32  `json:"availableQuantity"`
	InStock           bool   `json:"inStock"`
}

// MessageResponse - ответ на успешное движение товара
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error     string `json:"error"`
	Requested *int32 `json:"requested,omitempty"`
	Available *int32 `json:"available,omitempty"`
}

func toStockResponse(rec repository.StockRecord) StockResponse {
	return StockResponse{
		ID:                rec.ID,
		ProductID:         rec.ProductID,
		LocationCode:      rec.LocationCode,
		Quantity:          rec.Quantity,
		ReservedQuantity:  rec.ReservedQuantity,
		AvailableQuantity: rec.Available(),
		Status:            string(rec.Status),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// GetStock обрабатывает GET /api/inventory/{productId}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	rec, err := h.query.GetByProductID(r.Context(), productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockResponse(rec))
}

// GetStatus обрабатывает GET /api/inventory/status/{productId}
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	rec, err := h.query.GetByProductID(r.Context(), productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	available := rec.Available()
	writeJSON(w, http.StatusOK, StatusResponse{
		ProductID:         rec.ProductID,
		Status:            string(rec.Status),
		Quantity:          rec.Quantity,
		ReservedQuantity:  rec.ReservedQuantity,
		AvailableQuantity: available,
		InStock:           available > 0,
	})
}

// GetBatch обрабатывает POST /api/inventory/batch
// Тело - JSON массив product_id, ответ - объект product_id -> запись
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	var productIDs []string
	if err := json.NewDecoder(r.Body).Decode(&productIDs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: expected an array of product ids")
		return
	}

	records, err := h.query.GetManyByProductIDs(r.Context(), productIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make(map[string]StockResponse, len(records))
	for id, rec := range records {
		resp[id] = toStockResponse(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reserve обрабатывает POST /api/inventory/reserve
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.Reserve, "Stock reservation completed")
}

// Release обрабатывает POST /api/inventory/release
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.Release, "Stock reservation released")
}

// StockIn обрабатывает POST /api/inventory/stock-in
func (h *Handler) StockIn(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.ReceiveStock, "Stock in process completed")
}

// StockOut обрабатывает POST /api/inventory/stock-out
func (h *Handler) StockOut(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.ShipStock, "Stock out process completed")
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int32) error, message string) {
	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity == nil || *req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be >= 1")
		return
	}

	if err := op(r.Context(), req.ProductID, *req.Quantity); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// GetLowStock обрабатывает GET /api/inventory/low-stock?threshold=N
// Возвращает записи, у которых quantity <= threshold
func (h *Handler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.query.ListBelowThreshold)
}

// GetLowAvailable обрабатывает GET /api/inventory/low-available?threshold=N
// Возвращает записи, у которых quantity - reserved_quantity <= threshold
func (h *Handler) GetLowAvailable(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.query.ListLowAvailable)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, find func(context.Context, int32) ([]repository.StockRecord, error)) {
	threshold := service.DefaultLowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = int32(parsed)
	}

	records, err := find(r.Context(), threshold)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]StockResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toStockResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateStock обрабатывает POST /api/inventory
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var req CreateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	rec, err := h.stock.CreateStock(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockResponse(rec))
}

// SetDiscontinued обрабатывает PUT /api/inventory/{productId}/discontinued
func (h *Handler) SetDiscontinued(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var req DiscontinuedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	rec, err := h.stock.SetDiscontinued(r.Context(), productID, req.Discontinued)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockResponse(rec))
}

// GetProduct обрабатывает GET /api/products/{productId}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	view, err := h.products.ProductView(r.Context(), productID)
	if err != nil {
		if errors.Is(err, presentation.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		platformobservability.L(r.Context(), h.logger).Error("product view failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// writeServiceError переводит ошибку service слоя в HTTP статус
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *service.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     err.Error(),
			Requested: &insufficient.Requested,
			Available: &insufficient.Available,
		})
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidProductID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	default:
		platformobservability.L(r.Context(), h.logger).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, service.ErrUnavailable.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
