package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus — статус заказа, закрытое перечисление из трёх значений
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal сообщает, является ли статус конечным.
// Заказ из completed или failed больше никогда не меняет статус.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// PaymentMethod — способ оплаты, закрытое перечисление
type PaymentMethod string

const (
	PaymentMethodEwallet       PaymentMethod = "ewallet"
	PaymentMethodMobileBanking PaymentMethod = "mobile_banking"
	PaymentMethodQRCode        PaymentMethod = "qr_code"
)

// ParsePaymentMethod валидирует строку из запроса и возвращает способ оплаты
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentMethodEwallet, PaymentMethodMobileBanking, PaymentMethodQRCode:
		return PaymentMethod(s), true
	}
	return "", false
}

// Order представляет одну покупку
type Order struct {
	ID               int64           `json:"id"`
	OrderNumber      string          `json:"order_number"` // Уникальный человекочитаемый токен
	BuyerID          int64           `json:"buyer_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"` // Всегда равен сумме цен позиций на момент создания
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Status           OrderStatus     `json:"status"`
	PaymentReference *string         `json:"payment_reference,omitempty"` // Заполняется только при completed
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`      // Заполняется только при completed
	CreatedAt        time.Time       `json:"created_at"`
}

// OrderItem представляет одну позицию заказа
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductID     int64           `json:"product_id"`
	Price         decimal.Decimal `json:"price"` // Снимок цены товара на момент покупки, после создания не меняется
	DownloadsUsed int             `json:"downloads_used"`
	DownloadLimit int             `json:"download_limit"` // Лимит владеющего товара; заполняется через JOIN с таблицей products
}

// RemainingDownloads возвращает остаток скачиваний по позиции
func (i *OrderItem) RemainingDownloads() int {
	return i.DownloadLimit - i.DownloadsUsed
}

// NewOrderNumber генерирует опаковый номер заказа вида ORD-XXXXXXXXXX.
// Уникальность гарантируется проверкой на коллизию при создании заказа.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:10])
}
