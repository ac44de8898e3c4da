// Package payment создаёт платёжные намерения для покупки премиум-доступа.
// Состояние платежа локально не хранится.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/paymentprovider"
)

// Provider внешний платёжный процессор.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, params paymentprovider.CreatePaymentIntentRequest) (*paymentprovider.PaymentIntent, error)
}

// Service создаёт платёжные намерения.
type Service struct {
	provider Provider
	currency string
	log      *slog.Logger
}

// New создаёт новый экземпляр Service.
func New(provider Provider, currency string, log *slog.Logger) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		provider: provider,
		currency: currency,
		log:      log,
	}
}

// ToMinorUnits переводит цену в минимальные единицы валюты, отбрасывая дробную часть.
func ToMinorUnits(price float64) int64 {
	return int64(price * 100)
}

// CreateIntent возвращает client secret намерения на сумму price.
func (s *Service) CreateIntent(ctx context.Context, price float64) (string, error) {
	const op = "services.payment.CreateIntent"

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidPrice)
	}
	amount := ToMinorUnits(price)
	if amount <= 0 {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidPrice)
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, paymentprovider.CreatePaymentIntentRequest{
		Amount:             amount,
		Currency:           s.currency,
		PaymentMethodTypes: []string{"card"},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("payment intent created", slog.String("id", intent.ID), slog.Int64("amount", amount))
	return intent.ClientSecret, nil
}
