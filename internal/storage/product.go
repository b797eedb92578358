package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/digital-market/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы для работы с каталогом товаров.
type ProductStorage interface {
	// GetProductByID возвращает товар вне транзакции.
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// GetProductByIDTx возвращает товар внутри транзакции создания заказа,
	// чтобы снимок цены и лимита скачиваний был согласованным.
	GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, seller_id, name, price, is_active, download_limit"

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	if err := row.Scan(&product.ID, &product.SellerID, &product.Name, &product.Price, &product.IsActive, &product.DownloadLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

func (r *productRepository) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO products (seller_id, name, price, is_active, download_limit) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		product.SellerID, product.Name, product.Price, product.IsActive, product.DownloadLimit,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	product.ID = id
	return product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name = $1, price = $2, is_active = $3, download_limit = $4 WHERE id = $5",
		product.Name, product.Price, product.IsActive, product.DownloadLimit, product.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
