package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/digital-market/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending возвращается при попытке перевести заказ из
	// конечного статуса: completed и failed терминальны.
	ErrOrderNotPending = errors.New("order is not pending")
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ в статусе pending внутри транзакции
	// и возвращает его идентификатор.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// OrderNumberExistsTx проверяет номер заказа на коллизию.
	OrderNumberExistsTx(ctx context.Context, tx *sql.Tx, orderNumber string) (bool, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]*models.Order, error)
	// MarkCompleted переводит заказ pending -> completed одним условным UPDATE.
	MarkCompleted(ctx context.Context, id int64, paymentReference string, completedAt time.Time) error
	// MarkFailed переводит заказ pending -> failed одним условным UPDATE.
	MarkFailed(ctx context.Context, id int64) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = "id, order_number, buyer_id, total_amount, payment_method, status, payment_reference, completed_at, created_at"

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	query := `INSERT INTO orders (order_number, buyer_id, total_amount, payment_method, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := tx.QueryRowContext(ctx, query,
		order.OrderNumber, order.BuyerID, order.TotalAmount, order.PaymentMethod, order.Status, order.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) OrderNumberExistsTx(ctx context.Context, tx *sql.Tx, orderNumber string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", orderNumber).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err := row.Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.TotalAmount,
		&order.PaymentMethod, &order.Status, &order.PaymentReference, &order.CompletedAt, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.TotalAmount,
			&order.PaymentMethod, &order.Status, &order.PaymentReference, &order.CompletedAt, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkCompleted выполняется вне транзакции создания: расчёт — отдельный шаг.
// Условие status = 'pending' гарантирует однократность перехода.
func (r *orderRepository) MarkCompleted(ctx context.Context, id int64, paymentReference string, completedAt time.Time) error {
	query := `UPDATE orders SET status = $1, payment_reference = $2, completed_at = $3 WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query,
		models.OrderStatusCompleted, paymentReference, completedAt, id, models.OrderStatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotPending
	}
	return nil
}

func (r *orderRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, models.OrderStatusFailed, id, models.OrderStatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotPending
	}
	return nil
}
