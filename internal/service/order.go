package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/digital-market/internal/auth"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/payment"
	"github.com/linemk/digital-market/internal/storage"
	"github.com/shopspring/decimal"
)

// Сообщения об исходе оплаты, которые видит покупатель.
const (
	msgOrderCompleted = "Order completed successfully! You can now download your products."
	msgPaymentFailed  = "Payment failed. Please try again."
)

// сколько раз перегенерируем номер заказа при коллизии
const orderNumberAttempts = 5

// CreateOrderResult — результат создания заказа. Неуспешная оплата — не
// ошибка, а часть результата: заказ создан в любом случае.
type CreateOrderResult struct {
	Order   *models.Order
	Items   []*models.OrderItem
	Outcome payment.Outcome
	Message string
}

// OrderDetails — заказ вместе с позициями для просмотра.
type OrderDetails struct {
	Order *models.Order
	Items []*models.OrderItem
}

type OrderService interface {
	CreateOrder(ctx context.Context, buyerID int64, productIDs []int64, paymentMethod string) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, actorID, orderID int64) (*OrderDetails, error)
	ListOrders(ctx context.Context, actorID int64) ([]*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	db        *sql.DB
	userRepo  storage.UserStorage
	prodRepo  storage.ProductStorage
	orderRepo storage.OrderStorage
	itemRepo  storage.OrderItemStorage
	settle    SettleService
}

func NewOrderService(log *slog.Logger, db *sql.DB, userRepo storage.UserStorage, prodRepo storage.ProductStorage,
	orderRepo storage.OrderStorage, itemRepo storage.OrderItemStorage, settle SettleService) OrderService {
	return &orderService{
		log:       log,
		db:        db,
		userRepo:  userRepo,
		prodRepo:  prodRepo,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		settle:    settle,
	}
}

// CreateOrder создаёт заказ со снимком цен и сразу проводит расчёт.
// Создание заказа с позициями — одна транзакция: заказ без позиций или
// позиции без заказа в базе появиться не могут. Расчёт — отдельный шаг
// после коммита, его исход возвращается в результате, а не ошибкой.
func (s *orderService) CreateOrder(ctx context.Context, buyerID int64, productIDs []int64, paymentMethod string) (*CreateOrderResult, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", buyerID))
	logger.Info("starting order creation")

	method, ok := models.ParsePaymentMethod(paymentMethod)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidPaymentMethod, paymentMethod)
	}
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyProductList)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Разрешаем все товары до каких-либо вставок: если хотя бы один ID
	// не находится, операция не создаёт ничего. Дубликаты допустимы,
	// каждый ID — отдельная позиция.
	products := make([]*models.Product, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.prodRepo.GetProductByIDTx(ctx, tx, id)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to resolve product", slog.Int64("productID", id), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to resolve product %d: %w", op, id, err)
		}
		products = append(products, product)
	}

	// Сумма заказа — точная десятичная арифметика, никаких float
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}

	orderNumber, err := s.generateOrderNumber(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := &models.Order{
		OrderNumber:   orderNumber,
		BuyerID:       buyerID,
		TotalAmount:   total,
		PaymentMethod: method,
		Status:        models.OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	// Позиции создаются в порядке входного списка, цена — снимок на
	// момент покупки, дальше она не пересчитывается
	items := make([]*models.OrderItem, 0, len(products))
	for _, p := range products {
		item := &models.OrderItem{
			OrderID:       orderID,
			ProductID:     p.ID,
			Price:         p.Price,
			DownloadsUsed: 0,
			DownloadLimit: p.DownloadLimit,
		}
		itemID, err := s.itemRepo.CreateOrderItemTx(ctx, tx, item)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		item.ID = itemID
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// Расчёт идёт сразу после создания и ровно один раз
	outcome, err := s.settle.Settle(ctx, order)
	if err != nil {
		logger.Error("settlement failed to apply", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to settle order: %w", op, err)
	}

	message := msgPaymentFailed
	if outcome == payment.OutcomeSuccess {
		message = msgOrderCompleted
	}
	logger.Info("order created",
		slog.String("orderNumber", order.OrderNumber),
		slog.String("status", string(order.Status)),
	)
	return &CreateOrderResult{
		Order:   order,
		Items:   items,
		Outcome: outcome,
		Message: message,
	}, nil
}

// generateOrderNumber подбирает номер заказа с проверкой на коллизию
func (s *orderService) generateOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		number := models.NewOrderNumber()
		exists, err := s.orderRepo.OrderNumberExistsTx(ctx, tx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique order number after %d attempts", orderNumberAttempts)
}

// GetOrder возвращает заказ с позициями. Просмотр разрешён админу и
// покупателю-владельцу; состояние никогда не мутирует.
func (s *orderService) GetOrder(ctx context.Context, actorID, orderID int64) (*OrderDetails, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actorID), slog.Int64("orderID", orderID))

	actor, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		logger.Error("failed to get actor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get actor: %w", op, err)
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if !auth.CanViewOrder(actor, order) {
		logger.Warn("actor is not allowed to view the order")
		return nil, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	items, err := s.itemRepo.GetItemsByOrderID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}

	return &OrderDetails{Order: order, Items: items}, nil
}

// ListOrders возвращает собственные заказы актора
func (s *orderService) ListOrders(ctx context.Context, actorID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByBuyerID(ctx, actorID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}
