package storage_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "role", "is_active"}).
		AddRow(1, "buyer@example.com", []byte("hash"), "buyer", true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, pass_hash, role, is_active FROM users WHERE email = $1")).
		WithArgs("buyer@example.com").
		WillReturnRows(rows)

	user, err := repo.GetUserByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.True(t, user.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, pass_hash, role, is_active FROM users WHERE email = $1")).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "pass_hash", "role", "is_active"}))

	_, err = repo.GetUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestProductRepository_GetProductByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "is_active", "download_limit"}).
		AddRow(10, 2, "E-book", "9.99", true, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, seller_id, name, price, is_active, download_limit FROM products WHERE id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	product, err := repo.GetProductByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), product.ID)
	assert.Equal(t, "9.99", product.Price.StringFixed(2))
	assert.Equal(t, 5, product.DownloadLimit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetProductByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, seller_id, name, price, is_active, download_limit FROM products WHERE id = $1")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "is_active", "download_limit"}))

	_, err = repo.GetProductByID(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestOrderRepository_CreateOrderTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("ORD-ABCDEF0123", int64(1), sqlmock.AnyArg(), "ewallet", "pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	order := &models.Order{
		OrderNumber:   "ORD-ABCDEF0123",
		BuyerID:       1,
		TotalAmount:   decimal.RequireFromString("14.98"),
		PaymentMethod: models.PaymentMethodEwallet,
		Status:        models.OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	id, err := repo.CreateOrderTx(context.Background(), tx, order)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1, payment_reference = $2, completed_at = $3 WHERE id = $4 AND status = $5")).
		WithArgs("completed", "PAY-ABCDEF0123456789", sqlmock.AnyArg(), int64(7), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkCompleted(context.Background(), 7, "PAY-ABCDEF0123456789", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkCompleted_AlreadySettled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	// условный UPDATE не зацепил ни одной строки: статус уже не pending
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1, payment_reference = $2, completed_at = $3 WHERE id = $4 AND status = $5")).
		WithArgs("completed", "PAY-ABCDEF0123456789", sqlmock.AnyArg(), int64(7), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkCompleted(context.Background(), 7, "PAY-ABCDEF0123456789", time.Now())
	assert.ErrorIs(t, err, storage.ErrOrderNotPending)
}

func TestOrderRepository_MarkFailed_AlreadySettled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1 WHERE id = $2 AND status = $3")).
		WithArgs("failed", int64(7), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkFailed(context.Background(), 7)
	assert.ErrorIs(t, err, storage.ErrOrderNotPending)
}

func TestOrderItemRepository_GetOrderItemByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderItemRepository(db)

	rows := sqlmock.NewRows([]string{"id", "order_id", "product_id", "price", "downloads_used", "download_limit"}).
		AddRow(200, 100, 10, "9.99", 2, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT oi.id, oi.order_id, oi.product_id, oi.price, oi.downloads_used, p.download_limit")).
		WithArgs(int64(200)).
		WillReturnRows(rows)

	item, err := repo.GetOrderItemByID(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), item.OrderID)
	assert.Equal(t, 2, item.DownloadsUsed)
	assert.Equal(t, 5, item.DownloadLimit)
	assert.Equal(t, 3, item.RemainingDownloads())
}

func TestOrderItemRepository_IncrementDownloads(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE order_items oi")).
		WithArgs(int64(200)).
		WillReturnRows(sqlmock.NewRows([]string{"downloads_used", "download_limit"}).AddRow(3, 5))

	used, limit, err := repo.IncrementDownloads(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 3, used)
	assert.Equal(t, 5, limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderItemRepository_IncrementDownloads_LimitReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderItemRepository(db)

	// UPDATE не зацепил строку, но позиция существует: лимит исчерпан
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE order_items oi")).
		WithArgs(int64(200)).
		WillReturnRows(sqlmock.NewRows([]string{"downloads_used", "download_limit"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM order_items WHERE id = $1)")).
		WithArgs(int64(200)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, _, err = repo.IncrementDownloads(context.Background(), 200)
	assert.ErrorIs(t, err, storage.ErrNoDownloadsLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderItemRepository_IncrementDownloads_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE order_items oi")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"downloads_used", "download_limit"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM order_items WHERE id = $1)")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, _, err = repo.IncrementDownloads(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrOrderItemNotFound)
}
