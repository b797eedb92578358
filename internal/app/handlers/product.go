package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/digital-market/internal/service"
	"github.com/shopspring/decimal"
)

// ProductRequest представляет входной JSON для создания и обновления товара.
// Цена передаётся строкой и парсится в точный decimal.
type ProductRequest struct {
	Name          string `json:"name" validate:"required"`
	Price         string `json:"price" validate:"required"`
	IsActive      bool   `json:"is_active"`
	DownloadLimit int    `json:"download_limit" validate:"omitempty,gt=0"`
}

// ProductResponse — представление товара в ответах API.
type ProductResponse struct {
	ID            int64  `json:"id"`
	SellerID      int64  `json:"seller_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	IsActive      bool   `json:"is_active"`
	DownloadLimit int    `json:"download_limit"`
}

// лимит скачиваний по умолчанию, если продавец его не указал
const defaultDownloadLimit = 5

func toProductResponse(product *models.Product) ProductResponse {
	return ProductResponse{
		ID:            product.ID,
		SellerID:      product.SellerID,
		Name:          product.Name,
		Price:         product.Price.StringFixed(2),
		IsActive:      product.IsActive,
		DownloadLimit: product.DownloadLimit,
	}
}

func parseProductInput(req ProductRequest) (service.ProductInput, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return service.ProductInput{}, err
	}
	limit := req.DownloadLimit
	if limit == 0 {
		limit = defaultDownloadLimit
	}
	return service.ProductInput{
		Name:          req.Name,
		Price:         price.Round(2),
		IsActive:      req.IsActive,
		DownloadLimit: limit,
	}, nil
}

// CreateProductHandler обрабатывает запрос POST /api/products.
func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		var req ProductRequest
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
		input, err := parseProductInput(req)
		if err != nil || input.Price.IsNegative() {
			logger.Error("invalid price", slog.Any("error", err))
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		product, err := productService.CreateProduct(r.Context(), userID, input)
		if err != nil {
			logger.Error("failed to create product", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toProductResponse(product)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// GetProductHandler обрабатывает запрос GET /api/products/{productID}.
func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		product, err := productService.GetProduct(r.Context(), userID, productID)
		if err != nil {
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponse(product)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// UpdateProductHandler обрабатывает запрос PUT /api/products/{productID}.
func UpdateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		var req ProductRequest
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
		input, err := parseProductInput(req)
		if err != nil || input.Price.IsNegative() {
			logger.Error("invalid price", slog.Any("error", err))
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		product, err := productService.UpdateProduct(r.Context(), userID, productID, input)
		if err != nil {
			logger.Error("failed to update product", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponse(product)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// DeleteProductHandler обрабатывает запрос DELETE /api/products/{productID}.
func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := productService.DeleteProduct(r.Context(), userID, productID); err != nil {
			logger.Error("failed to delete product", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
