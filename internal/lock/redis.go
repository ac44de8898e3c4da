// Package lock реализует распределённую блокировку на Redis. Ею пользуется
// планировщик, чтобы очистку истёкших доступов выполняла одна реплика.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/storyflow/internal/config"
)

// ErrNotHeld блокировка уже истекла или захвачена другим владельцем.
var ErrNotHeld = errors.New("lock not held")

// Удаляет ключ, только если значение совпадает с токеном владельца.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker распределённая блокировка.
type Locker struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Locker, error) {
	const op = "lock.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Locker{Db: db}, nil
}

// TryLock пытается захватить ключ на ttl. При успехе возвращает токен владельца.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	const op = "lock.TryLock"
	token := uuid.NewString()
	ok, err := l.Db.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock освобождает ключ, если он всё ещё принадлежит token.
func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	const op = "lock.Unlock"
	n, err := unlockScript.Run(ctx, l.Db, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotHeld)
	}
	return nil
}

// Close закрывает соединение.
func (l *Locker) Close() error {
	return l.Db.Close()
}
