package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/digital-market/internal/service"
)

// ProductRef — ссылка на товар в запросе создания заказа.
type ProductRef struct {
	ID int64 `json:"id" validate:"required"`
}

// CreateOrderRequest представляет входной JSON для создания заказа.
type CreateOrderRequest struct {
	Products      []ProductRef `json:"products" validate:"required,min=1,dive"`
	PaymentMethod string       `json:"payment_method" validate:"required"`
}

// OrderResponse — представление заказа в ответах API.
// Суммы сериализуются строками с двумя знаками, чтобы не терять точность.
type OrderResponse struct {
	ID               int64      `json:"id"`
	OrderNumber      string     `json:"order_number"`
	BuyerID          int64      `json:"buyer_id"`
	TotalAmount      string     `json:"total_amount"`
	PaymentMethod    string     `json:"payment_method"`
	Status           string     `json:"status"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// OrderItemResponse — представление позиции заказа в ответах API.
type OrderItemResponse struct {
	ID                 int64  `json:"id"`
	ProductID          int64  `json:"product_id"`
	Price              string `json:"price"`
	DownloadsUsed      int    `json:"downloads_used"`
	DownloadLimit      int    `json:"download_limit"`
	RemainingDownloads int    `json:"remaining_downloads"`
}

// CreateOrderResponse — ответ на создание заказа. Исход оплаты — часть
// ответа: и success, и failure возвращаются со статусом 200.
type CreateOrderResponse struct {
	Order      OrderResponse       `json:"order"`
	Items      []OrderItemResponse `json:"items"`
	Settlement string              `json:"settlement"`
	Message    string              `json:"message"`
}

func toOrderResponse(order *models.Order) OrderResponse {
	return OrderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		BuyerID:          order.BuyerID,
		TotalAmount:      order.TotalAmount.StringFixed(2),
		PaymentMethod:    string(order.PaymentMethod),
		Status:           string(order.Status),
		PaymentReference: order.PaymentReference,
		CompletedAt:      order.CompletedAt,
		CreatedAt:        order.CreatedAt,
	}
}

func toItemResponses(items []*models.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			Price:              item.Price.StringFixed(2),
			DownloadsUsed:      item.DownloadsUsed,
			DownloadLimit:      item.DownloadLimit,
			RemainingDownloads: item.RemainingDownloads(),
		})
	}
	return out
}

// CreateOrderHandler обрабатывает запрос POST /api/orders.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		productIDs := make([]int64, 0, len(req.Products))
		for _, p := range req.Products {
			productIDs = append(productIDs, p.ID)
		}

		result, err := orderService.CreateOrder(r.Context(), userID, productIDs, req.PaymentMethod)
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		resp := CreateOrderResponse{
			Order:      toOrderResponse(result.Order),
			Items:      toItemResponses(result.Items),
			Settlement: string(result.Outcome),
			Message:    result.Message,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{orderID}.
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		details, err := orderService.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		resp := struct {
			Order OrderResponse       `json:"order"`
			Items []OrderItemResponse `json:"items"`
		}{
			Order: toOrderResponse(details.Order),
			Items: toItemResponses(details.Items),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// ListOrdersHandler обрабатывает запрос GET /api/orders.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		resp := struct {
			Orders []OrderResponse `json:"orders"`
		}{Orders: make([]OrderResponse, 0, len(orders))}
		for _, order := range orders {
			resp.Orders = append(resp.Orders, toOrderResponse(order))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}
