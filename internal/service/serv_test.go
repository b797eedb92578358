package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/payment"
	"github.com/linemk/digital-market/internal/service"
	"github.com/linemk/digital-market/internal/storage"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fakeUserRepo — фиктивная реализация UserStorage.
type fakeUserRepo struct {
	users map[int64]*models.User // ключ — ID пользователя
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = int64(len(f.users) + 1)
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

// fakeProductRepo — фиктивная реализация ProductStorage.
type fakeProductRepo struct {
	products map[int64]*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*models.Product)}
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.ID = int64(len(f.products) + 1)
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, product *models.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return storage.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

// fakeOrderRepo — фиктивная реализация OrderStorage с терминальными статусами.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
	nextID int64
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*models.Order)}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *order
	stored.ID = f.nextID
	f.orders[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeOrderRepo) OrderNumberExistsTx(ctx context.Context, tx *sql.Tx, orderNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []*models.Order
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			copied := *o
			orders = append(orders, &copied)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (f *fakeOrderRepo) MarkCompleted(ctx context.Context, id int64, paymentReference string, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.OrderStatusPending {
		return storage.ErrOrderNotPending
	}
	order.Status = models.OrderStatusCompleted
	order.PaymentReference = &paymentReference
	order.CompletedAt = &completedAt
	return nil
}

func (f *fakeOrderRepo) MarkFailed(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.OrderStatusPending {
		return storage.ErrOrderNotPending
	}
	order.Status = models.OrderStatusFailed
	return nil
}

// fakeItemRepo — фиктивная реализация OrderItemStorage.
// Инкремент с проверкой лимита атомарен под мьютексом, как условный UPDATE в БД.
type fakeItemRepo struct {
	mu     sync.Mutex
	items  map[int64]*models.OrderItem
	nextID int64
}

var _ storage.OrderItemStorage = (*fakeItemRepo)(nil)

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[int64]*models.OrderItem)}
}

func (f *fakeItemRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *item
	stored.ID = f.nextID
	f.items[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeItemRepo) GetOrderItemByID(ctx context.Context, id int64) (*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, storage.ErrOrderItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItemRepo) GetItemsByOrderID(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []*models.OrderItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			copied := *item
			items = append(items, &copied)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (f *fakeItemRepo) IncrementDownloads(ctx context.Context, itemID int64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return 0, 0, storage.ErrOrderItemNotFound
	}
	if item.DownloadsUsed >= item.DownloadLimit {
		return 0, 0, storage.ErrNoDownloadsLeft
	}
	item.DownloadsUsed++
	return item.DownloadsUsed, item.DownloadLimit, nil
}

// stubDecider — детерминированная заглушка исхода оплаты.
type stubDecider struct {
	outcome payment.Outcome
}

func (d stubDecider) Decide() payment.Outcome { return d.outcome }

func TestAuthService_Login_NewUser(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	email := "newuser@example.com"
	password := "password123"

	token, err := authSvc.Login(ctx, email, password)
	assert.NoError(t, err, "Login should succeed for a new user")
	assert.NotEmpty(t, token, "Token should not be empty")

	user, err := fakeRepo.GetUserByEmail(ctx, email)
	assert.NoError(t, err, "User should exist after creation")
	assert.Equal(t, models.RoleBuyer, user.Role, "New user should get the buyer role")
	assert.True(t, user.IsActive, "New user should be active")
	// Проверяем, что пароль хэширован (не равен исходному паролю)
	assert.NotEqual(t, password, string(user.PassHash), "Password should be hashed")
}

func TestAuthService_Login_ExistingUser_CorrectPassword(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	password := "password123"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	assert.NoError(t, err)
	user := &models.User{
		Email:    "existing@example.com",
		PassHash: hashed,
		Role:     models.RoleBuyer,
		IsActive: true,
	}
	_, err = fakeRepo.CreateUser(ctx, user)
	assert.NoError(t, err)

	token, err := authSvc.Login(ctx, user.Email, password)
	assert.NoError(t, err, "Login should succeed with correct password")
	assert.NotEmpty(t, token, "Token should be returned")
}

func TestAuthService_Login_ExistingUser_WrongPassword(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	user := &models.User{
		Email:    "existing@example.com",
		PassHash: hashed,
		Role:     models.RoleBuyer,
		IsActive: true,
	}
	_, err = fakeRepo.CreateUser(ctx, user)
	assert.NoError(t, err)

	token, err := authSvc.Login(ctx, user.Email, "wrongpassword")
	assert.Error(t, err, "Login should fail with incorrect password")
	assert.Empty(t, token, "Token should be empty on failed login")
}

func TestAuthService_Login_DeactivatedUser(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	user := &models.User{
		Email:    "blocked@example.com",
		PassHash: hashed,
		Role:     models.RoleBuyer,
		IsActive: false,
	}
	_, err = fakeRepo.CreateUser(ctx, user)
	assert.NoError(t, err)

	token, err := authSvc.Login(ctx, user.Email, "password123")
	assert.Error(t, err, "Login should fail for deactivated user")
	assert.Empty(t, token)
}
