// Package scheduler периодически очищает истёкшие премиум-доступы.
// Ленивая сверка при входе остаётся основной; очистка лишь ускоряет её
// для пользователей, которые давно не входили.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/services/entitlement"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

// LockKey ключ блокировки очистки в Redis.
const LockKey = "storyflow:premium-sweep"

// UserFinder выборка пользователей.
type UserFinder interface {
	FindUsers(ctx context.Context, q query.Query) ([]models.User, error)
}

// Expirer очищает истёкший доступ пользователя.
type Expirer interface {
	Expire(ctx context.Context, user models.User, source string) (bool, error)
	GrantDuration() time.Duration
}

// Locker распределённая блокировка.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// SchedulerService очищает истёкшие доступы по таймеру.
type SchedulerService struct {
	users    UserFinder
	expirer  Expirer
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// Без locker очистка выполняется без блокировки.
func NewSchedulerService(users UserFinder, expirer Expirer, locker Locker, interval, lockTTL time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		users:    users,
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		now:      time.Now,
		log:      log,
	}
}

// Run выполняет очистку сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *SchedulerService) runSweep(ctx context.Context) {
	cleared, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("premium sweep failed", sl.Err(err))
		return
	}
	s.log.Info("premium sweep finished", slog.Int("cleared", cleared))
}

// Sweep очищает все истёкшие доступы и возвращает их число. Если блокировку
// держит другая реплика, ничего не делает.
func (s *SchedulerService) Sweep(ctx context.Context) (int, error) {
	const op = "services.scheduler.Sweep"

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			s.log.Debug("premium sweep skipped, lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), LockKey, token); err != nil {
				s.log.Warn("failed to release sweep lock", sl.Err(err))
			}
		}()
	}

	cutoff := s.now().Add(-s.expirer.GrantDuration())
	users, err := s.users.FindUsers(ctx, query.New(query.Range(query.FieldPremiumTaken, nil, cutoff)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	cleared := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return cleared, fmt.Errorf("%s: %w", op, err)
		}
		ok, err := s.expirer.Expire(ctx, u, entitlement.SourceSweeper)
		if err != nil {
			s.log.Error("failed to expire premium", slog.String("email", u.Email), sl.Err(err))
			continue
		}
		if ok {
			cleared++
		}
	}
	return cleared, nil
}
