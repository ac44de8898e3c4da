// Package entitlement решает, может ли пользователь отправить ещё одну статью,
// и сбрасывает истёкший премиум-доступ.
//
// Активность доступа определяет одна чистая функция IsGrantActive; её используют
// и вход в систему (с очисткой истёкшего доступа), и проверка права на статью
// (только чтение).
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/metrics"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

const (
	SourceSignIn  = "signin"
	SourceSweeper = "sweeper"
)

// IsGrantActive сообщает, действует ли доступ, начатый в premiumTaken, на момент now.
// Доступ действует до premiumTaken+duration включительно.
func IsGrantActive(premiumTaken *time.Time, now time.Time, duration time.Duration) bool {
	if premiumTaken == nil {
		return false
	}
	return !now.After(premiumTaken.Add(duration))
}

// UserStore операции над пользователями, нужные сервису.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ClearPremiumTakenBefore(ctx context.Context, email string, cutoff time.Time) (storage.UpdateResult, error)
}

// ArticleCounter считает статьи пользователя.
type ArticleCounter interface {
	CountArticles(ctx context.Context, q query.Query) (int64, error)
}

// EventPublisher отправляет события в сервис уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Service вычисляет право на публикацию и сбрасывает истёкший доступ.
type Service struct {
	users    UserStore
	articles ArticleCounter
	events   EventPublisher
	metrics  *metrics.Metrics
	duration time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewService создает новый экземпляр Service. events и m могут быть nil.
func NewService(users UserStore, articles ArticleCounter, events EventPublisher, m *metrics.Metrics, duration time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		articles: articles,
		events:   events,
		metrics:  m,
		duration: duration,
		now:      time.Now,
		log:      log,
	}
}

// GrantDuration длительность премиум-доступа.
func (s *Service) GrantDuration() time.Duration {
	return s.duration
}

// Reconcile вызывается при входе: если доступ истёк, очищает premiumTaken
// в хранилище и возвращает копию пользователя без доступа.
func (s *Service) Reconcile(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "services.entitlement.Reconcile"

	if user == nil || user.PremiumTaken == nil {
		return user, nil
	}
	if IsGrantActive(user.PremiumTaken, s.now(), s.duration) {
		return user, nil
	}
	if _, err := s.Expire(ctx, *user, SourceSignIn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cleared := *user
	cleared.PremiumTaken = nil
	return &cleared, nil
}

// Expire очищает доступ пользователя, если он истёк. Очистка условная:
// доступ, продлённый после чтения записи, не затрагивается.
func (s *Service) Expire(ctx context.Context, user models.User, source string) (bool, error) {
	const op = "services.entitlement.Expire"

	now := s.now()
	if user.PremiumTaken == nil || IsGrantActive(user.PremiumTaken, now, s.duration) {
		return false, nil
	}
	res, err := s.users.ClearPremiumTakenBefore(ctx, user.Email, now.Add(-s.duration))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return false, nil
	}

	s.metrics.PremiumExpired(source)
	s.log.Info("premium grant expired",
		slog.String("op", op),
		slog.String("email", user.Email),
		slog.String("source", source))
	s.publish(ctx, models.Event{
		Type:       models.EventPremiumExpired,
		Email:      user.Email,
		OccurredAt: now,
	})
	return true, nil
}

// CanSubmitArticle true, если у пользователя действующий доступ или ещё нет ни одной статьи.
// Хранилище не изменяется.
func (s *Service) CanSubmitArticle(ctx context.Context, email string) (bool, error) {
	const op = "services.entitlement.CanSubmitArticle"

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if user != nil && IsGrantActive(user.PremiumTaken, s.now(), s.duration) {
		s.metrics.EntitlementChecked(true)
		return true, nil
	}

	n, err := s.articles.CountArticles(ctx, query.New(query.Eq(query.FieldAuthorEmail, email)))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	allowed := n == 0
	s.metrics.EntitlementChecked(allowed)
	return allowed, nil
}

func (s *Service) publish(ctx context.Context, event models.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", slog.String("type", event.Type), sl.Err(err))
	}
}
