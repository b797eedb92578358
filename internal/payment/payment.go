package payment

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Outcome — исход расчёта по заказу. Неуспешная оплата — это нормальный
// бизнес-результат, а не ошибка.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Decider принимает решение об исходе оплаты. Интерфейс нужен, чтобы в
// тестах подменять случайный исход детерминированной заглушкой.
type Decider interface {
	Decide() Outcome
}

// RandomDecider — взвешенно-случайная реализация Decider.
// По умолчанию используется вероятность успеха 0.95.
type RandomDecider struct {
	successRate float64
}

func NewRandomDecider(successRate float64) *RandomDecider {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &RandomDecider{successRate: successRate}
}

func (d *RandomDecider) Decide() Outcome {
	if rand.Float64() < d.successRate {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// NewReference генерирует опаковый платёжный референс вида PAY-XXXXXXXXXXXXXXXX
func NewReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(raw[:16])
}
