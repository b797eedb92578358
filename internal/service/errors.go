package service

import "errors"

// Ошибки бизнес-логики. Транспортный слой сопоставляет их с HTTP-кодами
// через errors.Is, поэтому сервисы всегда оборачивают их через %w.
var (
	// валидация входа
	ErrEmptyProductList     = errors.New("at least one product is required")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrItemOrderMismatch    = errors.New("order item does not belong to the order")

	// авторизация
	ErrNotAllowed = errors.New("operation is not allowed")

	// состояние заказа: скачивать можно только из completed
	ErrOrderNotCompleted = errors.New("order must be completed to download products")

	// квота скачиваний
	ErrDownloadLimitReached = errors.New("download limit exceeded for this product")
)
