package handlers

import (
	"errors"
	"net/http"

	"github.com/linemk/digital-market/internal/service"
	"github.com/linemk/digital-market/internal/storage"
)

// statusForError сопоставляет ошибки бизнес-логики с HTTP-кодами.
// Сервисы оборачивают ошибки через %w, поэтому здесь достаточно errors.Is.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrOrderItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrOrderNotCompleted),
		errors.Is(err, service.ErrDownloadLimitReached):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyProductList),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrItemOrderMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
