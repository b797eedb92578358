package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/digital-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/digital-market/internal/service"
)

// DownloadResponse — ответ при успешном запросе на скачивание.
type DownloadResponse struct {
	Message            string `json:"message"`
	RemainingDownloads int    `json:"remaining_downloads"`
}

// DownloadHandler обрабатывает запрос POST /api/orders/{orderID}/items/{itemID}/download.
func DownloadHandler(log *slog.Logger, downloadService service.DownloadService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DownloadHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
		if err != nil {
			logger.Error("invalid order item id", slog.Any("error", err))
			http.Error(w, "invalid order item id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := downloadService.RequestDownload(r.Context(), userID, orderID, itemID)
		if err != nil {
			logger.Error("download request rejected", slog.Any("error", err))
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		resp := DownloadResponse{
			Message:            fmt.Sprintf("Download started! (%d downloads remaining)", result.RemainingDownloads),
			RemainingDownloads: result.RemainingDownloads,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}
