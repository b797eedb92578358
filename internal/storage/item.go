package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/digital-market/internal/domain/models"
)

var (
	ErrOrderItemNotFound = errors.New("order item not found")
	// ErrNoDownloadsLeft возвращается, когда счётчик скачиваний позиции
	// уже достиг лимита товара.
	ErrNoDownloadsLeft = errors.New("download limit reached")
)

// OrderItemStorage описывает методы для работы с позициями заказа.
type OrderItemStorage interface {
	// CreateOrderItemTx вставляет позицию внутри транзакции создания заказа.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) (int64, error)
	// GetOrderItemByID возвращает позицию вместе с лимитом скачиваний товара.
	GetOrderItemByID(ctx context.Context, id int64) (*models.OrderItem, error)
	GetItemsByOrderID(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	// IncrementDownloads атомарно увеличивает счётчик скачиваний на 1.
	// Инкремент и проверка лимита — один условный UPDATE, поэтому два
	// конкурентных запроса не могут вдвоём проскочить мимо лимита.
	IncrementDownloads(ctx context.Context, itemID int64) (used, limit int, err error)
}

type orderItemRepository struct {
	db *sql.DB
}

func NewOrderItemRepository(db *sql.DB) OrderItemStorage {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) (int64, error) {
	var id int64
	query := `INSERT INTO order_items (order_id, product_id, price, downloads_used)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := tx.QueryRowContext(ctx, query, item.OrderID, item.ProductID, item.Price, item.DownloadsUsed).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order item: %w", err)
	}
	return id, nil
}

func (r *orderItemRepository) GetOrderItemByID(ctx context.Context, id int64) (*models.OrderItem, error) {
	item := &models.OrderItem{}
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.price, oi.downloads_used, p.download_limit
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Price, &item.DownloadsUsed, &item.DownloadLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *orderItemRepository) GetItemsByOrderID(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.price, oi.downloads_used, p.download_limit
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Price, &item.DownloadsUsed, &item.DownloadLimit); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderItemRepository) IncrementDownloads(ctx context.Context, itemID int64) (int, int, error) {
	var used, limit int
	query := `
		UPDATE order_items oi
		SET downloads_used = oi.downloads_used + 1
		FROM products p
		WHERE oi.id = $1 AND p.id = oi.product_id AND oi.downloads_used < p.download_limit
		RETURNING oi.downloads_used, p.download_limit`
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&used, &limit)
	if err == nil {
		return used, limit, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, err
	}

	// UPDATE не зацепил строку: либо позиции нет, либо лимит исчерпан
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM order_items WHERE id = $1)", itemID).Scan(&exists); err != nil {
		return 0, 0, err
	}
	if !exists {
		return 0, 0, ErrOrderItemNotFound
	}
	return 0, 0, ErrNoDownloadsLeft
}
