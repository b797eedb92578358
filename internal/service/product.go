package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/digital-market/internal/auth"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/storage"
	"github.com/shopspring/decimal"
)

// ProductInput — данные товара от продавца.
type ProductInput struct {
	Name          string
	Price         decimal.Decimal
	IsActive      bool
	DownloadLimit int
}

// ProductService — управление каталогом. Все операции проходят через
// предикаты пакета auth.
type ProductService interface {
	CreateProduct(ctx context.Context, actorID int64, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, actorID, productID int64, input ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, actorID, productID int64) error
	GetProduct(ctx context.Context, actorID, productID int64) (*models.Product, error)
}

type productService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	prodRepo storage.ProductStorage
}

func NewProductService(log *slog.Logger, userRepo storage.UserStorage, prodRepo storage.ProductStorage) ProductService {
	return &productService{
		log:      log,
		userRepo: userRepo,
		prodRepo: prodRepo,
	}
}

func (s *productService) CreateProduct(ctx context.Context, actorID int64, input ProductInput) (*models.Product, error) {
	const op = "service.ProductService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actorID))

	actor, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		logger.Error("failed to get actor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get actor: %w", op, err)
	}
	if !auth.CanCreateProduct(actor) {
		logger.Warn("actor is not allowed to create products")
		return nil, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	product := &models.Product{
		SellerID:      actorID,
		Name:          input.Name,
		Price:         input.Price,
		IsActive:      input.IsActive,
		DownloadLimit: input.DownloadLimit,
	}
	product, err = s.prodRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create product: %w", op, err)
	}

	logger.Info("product created", slog.Int64("productID", product.ID))
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actorID, productID int64, input ProductInput) (*models.Product, error) {
	const op = "service.ProductService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actorID), slog.Int64("productID", productID))

	actor, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		logger.Error("failed to get actor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get actor: %w", op, err)
	}
	product, err := s.prodRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !auth.CanUpdateProduct(actor, product) {
		logger.Warn("actor is not allowed to update the product")
		return nil, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	// Изменение цены каталога не трогает снимки в уже созданных заказах
	product.Name = input.Name
	product.Price = input.Price
	product.IsActive = input.IsActive
	product.DownloadLimit = input.DownloadLimit
	if err := s.prodRepo.UpdateProduct(ctx, product); err != nil {
		logger.Error("failed to update product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update product: %w", op, err)
	}

	logger.Info("product updated")
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, actorID, productID int64) error {
	const op = "service.ProductService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actorID), slog.Int64("productID", productID))

	actor, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		logger.Error("failed to get actor", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get actor: %w", op, err)
	}
	product, err := s.prodRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !auth.CanDeleteProduct(actor, product) {
		logger.Warn("actor is not allowed to delete the product")
		return fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	if err := s.prodRepo.DeleteProduct(ctx, productID); err != nil {
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete product: %w", op, err)
	}

	logger.Info("product deleted")
	return nil
}

func (s *productService) GetProduct(ctx context.Context, actorID, productID int64) (*models.Product, error) {
	const op = "service.ProductService.GetProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actorID), slog.Int64("productID", productID))

	actor, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		logger.Error("failed to get actor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get actor: %w", op, err)
	}
	product, err := s.prodRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !auth.CanViewProduct(actor, product) {
		logger.Warn("actor is not allowed to view the product")
		return nil, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}
	return product, nil
}
