package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/digital-market/internal/auth"
	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/storage"
)

// DownloadResult — результат успешного запроса на скачивание.
type DownloadResult struct {
	RemainingDownloads int
}

type DownloadService interface {
	RequestDownload(ctx context.Context, actorID, orderID, itemID int64) (*DownloadResult, error)
}

type downloadService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	orderRepo storage.OrderStorage
	itemRepo  storage.OrderItemStorage
}

func NewDownloadService(log *slog.Logger, userRepo storage.UserStorage, orderRepo storage.OrderStorage, itemRepo storage.OrderItemStorage) DownloadService {
	return &downloadService{
		log:       log,
		userRepo:  userRepo,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
	}
}

// RequestDownload проводит один запрос на скачивание: авторизация, статус
// заказа, квота. Каждая проверка обрывает цепочку без изменения состояния,
// и только последний шаг инкрементирует счётчик.
func (s *downloadService) RequestDownload(ctx context.Context, actorID, orderID, itemID int64) (*DownloadResult, error) {
	const op = "service.DownloadService.RequestDownload"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("actorID", actorID),
		slog.Int64("orderID", orderID),
		slog.Int64("itemID", itemID),
	)

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

	item, err := s.itemRepo.GetOrderItemByID(ctx, itemID)
	if err != nil {
		logger.Error("failed to get order item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order item: %w", op, err)
	}
	if item.OrderID != order.ID {
		logger.Warn("order item does not belong to the order")
		return nil, fmt.Errorf("%s: %w", op, ErrItemOrderMismatch)
	}

	if !auth.CanDownload(actor, order) {
		logger.Warn("actor is not allowed to download from the order")
		return nil, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	// Проверка статуса идёт отдельно от CanDownload: админ проходит
	// предикат при любом статусе, но скачивать из незавершённого заказа
	// нельзя никому.
	if order.Status != models.OrderStatusCompleted {
		logger.Warn("order is not completed", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotCompleted)
	}

	used, limit, err := s.itemRepo.IncrementDownloads(ctx, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNoDownloadsLeft) {
			logger.Warn("download limit reached", slog.Int("downloadsUsed", item.DownloadsUsed))
			return nil, fmt.Errorf("%s: %w", op, ErrDownloadLimitReached)
		}
		logger.Error("failed to increment downloads", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to increment downloads: %w", op, err)
	}

	logger.Info("download granted", slog.Int("downloadsUsed", used), slog.Int("downloadLimit", limit))
	return &DownloadResult{RemainingDownloads: limit - used}, nil
}
