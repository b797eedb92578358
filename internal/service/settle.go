package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/digital-market/internal/domain/models"
	"github.com/linemk/digital-market/internal/payment"
	"github.com/linemk/digital-market/internal/storage"
)

// SettleService проводит расчёт по заказу: единственный переход
// pending -> completed/failed. Решение об исходе принимает payment.Decider,
// поэтому в тестах исход можно форсировать.
type SettleService interface {
	Settle(ctx context.Context, order *models.Order) (payment.Outcome, error)
}

type settleService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	decider   payment.Decider
}

func NewSettleService(log *slog.Logger, orderRepo storage.OrderStorage, decider payment.Decider) SettleService {
	return &settleService{
		log:       log,
		orderRepo: orderRepo,
		decider:   decider,
	}
}

// Settle применяет исход оплаты к заказу и мутирует переданную модель.
// При успехе заполняются payment_reference и completed_at, при неудаче они
// остаются пустыми навсегда. Оба перехода — условный UPDATE по статусу
// pending, поэтому повторный расчёт невозможен.
func (s *settleService) Settle(ctx context.Context, order *models.Order) (payment.Outcome, error) {
	const op = "service.SettleService.Settle"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", order.ID))

	if order.Status != models.OrderStatusPending {
		return "", fmt.Errorf("%s: %w", op, storage.ErrOrderNotPending)
	}

	outcome := s.decider.Decide()
	switch outcome {
	case payment.OutcomeSuccess:
		reference := payment.NewReference()
		completedAt := time.Now()
		if err := s.orderRepo.MarkCompleted(ctx, order.ID, reference, completedAt); err != nil {
			logger.Error("failed to mark order completed", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to mark order completed: %w", op, err)
		}
		order.Status = models.OrderStatusCompleted
		order.PaymentReference = &reference
		order.CompletedAt = &completedAt
		logger.Info("order settled", slog.String("outcome", string(outcome)), slog.String("reference", reference))
	default:
		if err := s.orderRepo.MarkFailed(ctx, order.ID); err != nil {
			logger.Error("failed to mark order failed", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to mark order failed: %w", op, err)
		}
		order.Status = models.OrderStatusFailed
		logger.Info("order settled", slog.String("outcome", string(outcome)))
	}
	return outcome, nil
}
